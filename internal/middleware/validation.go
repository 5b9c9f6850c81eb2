package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "gridpulse/internal/errors"
	"gridpulse/internal/timerange"
	"gridpulse/pkg/contracts/domain"
)

// Validator checks request structs against their validate tags
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator registers the dataset API's custom tags:
// isodate (YYYY-MM-DD), granularity, metric (a catalog name) and filename.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("isodate", isISODate)
	_ = v.RegisterValidation("granularity", isGranularity)
	_ = v.RegisterValidation("metric", isMetric)
	_ = v.RegisterValidation("filename", isValidFilename)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{validate: v, logger: logger.With(slog.String("component", "request_validator"))}
}

// ValidateStruct returns an APIError listing every failed field, or nil
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	m.logger.Debug("request rejected", slog.Int("fields", len(out)))
	return apierrors.NewValidationErrors(out)
}

// ContentTypeValidator rejects bodies whose Content-Type is not one of contentTypes
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				writeProblem(w, r, http.StatusBadRequest, "Content-Type header is required")
				return
			}

			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeProblem(w, r, http.StatusUnsupportedMediaType,
				fmt.Sprintf("unsupported content type %q (want one of %s)", contentType, strings.Join(contentTypes, ", ")))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(param, " ", " is ", 1))
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
	case "granularity":
		return fmt.Sprintf("%s must be one of: day, month, quarter, year, custom", field)
	case "metric":
		return fmt.Sprintf("%s contains an unknown metric %q", field, err.Value())
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := timerange.ParseDate(fl.Field().String())
	return err == nil
}

func isGranularity(fl validator.FieldLevel) bool {
	_, err := domain.ParseGranularity(fl.Field().String())
	return err == nil
}

func isMetric(fl validator.FieldLevel) bool {
	_, ok := domain.LookupMetric(fl.Field().String())
	return ok
}

func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	return !strings.Contains(filename, "..") && !strings.ContainsAny(filename, `/\`)
}

// QueryParamValidator parses and range-checks query parameters
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt reads param as an int in [min, max]. On failure it writes the
// error response and reports false.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max int, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}
	if n < min || n > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}
	return n, true
}

// ValidateEnum reads param and checks it against allowed
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}

	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
