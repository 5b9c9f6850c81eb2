package decoding

import (
	"strings"

	apperrors "gridpulse/internal/errors"
)

var requiredColumns = []string{"年", "月", "日", "时"}

// CheckText runs the content checks on text that was decoded elsewhere.
// Mojibake yields an encoding error; structural problems yield a format error
// whose context lists every problem found.
func CheckText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.NewEncodingError("file content is empty", nil)
	}
	if HasMojibake(text) {
		return apperrors.NewEncodingError("file content contains mis-decoded characters", nil)
	}

	var problems []string
	for _, col := range requiredColumns {
		if !strings.Contains(text, col) {
			problems = append(problems, "missing expected column "+col)
		}
	}
	if len(strings.Split(text, "\n")) < 2 {
		problems = append(problems, "need a header line and at least one data line")
	}
	if len(problems) > 0 {
		return apperrors.NewFormatError(strings.Join(problems, "; ")).
			WithContext("problems", problems)
	}
	return nil
}
