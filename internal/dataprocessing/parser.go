package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gridpulse/internal/decoding"
	apperrors "gridpulse/internal/errors"
	"gridpulse/pkg/contracts/domain"
)

// minHeaderColumns is the number of time columns every report must carry.
const minHeaderColumns = 4

// Accepted header names for the time columns, matched case-insensitively.
var (
	yearAliases  = []string{"年", "year"}
	monthAliases = []string{"月", "month"}
	dayAliases   = []string{"日", "day"}
	hourAliases  = []string{"时", "hour"}
)

// DefaultForecastColumns maps each forecast metric to the header fragment
// that locates it.
var DefaultForecastColumns = map[string]string{
	domain.MetricForecastPriceDifference: "价格差值预测",
	domain.MetricForecastDayAheadPrice:   "日前价格预测",
}

// ParserConfig holds the tunable parts of record parsing
type ParserConfig struct {
	// ForecastColumns maps forecast metric name to a header substring.
	ForecastColumns map[string]string
	// MaxSkipLogs bounds how many skipped rows are logged individually.
	MaxSkipLogs int
}

// DefaultParserConfig returns the stock parser configuration
func DefaultParserConfig() ParserConfig {
	cols := make(map[string]string, len(DefaultForecastColumns))
	for k, v := range DefaultForecastColumns {
		cols[k] = v
	}
	return ParserConfig{ForecastColumns: cols, MaxSkipLogs: 20}
}

// Parser converts decoded report text into a Dataset
type Parser struct {
	cfg      ParserConfig
	resolver *decoding.Resolver
	logger   *slog.Logger
}

// NewParser creates a parser. A nil resolver selects the default candidate order.
func NewParser(cfg ParserConfig, resolver *decoding.Resolver, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = decoding.DefaultResolver()
	}
	if cfg.ForecastColumns == nil {
		cfg.ForecastColumns = DefaultParserConfig().ForecastColumns
	}
	return &Parser{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "record_parser")),
	}
}

// ParseFile decodes raw bytes and parses the result. Either every stage
// succeeds and a Dataset is returned, or nothing is.
func (p *Parser) ParseFile(raw []byte) (*domain.Dataset, error) {
	res, err := p.resolver.ResolveDetailed(raw)
	if err != nil {
		return nil, err
	}
	ds, err := p.ParseText(res.Text)
	if err != nil {
		return nil, err
	}
	ds.Meta.Encoding = res.Encoding
	return ds, nil
}

// ParseText parses CSV text whose first non-blank line is the header.
func (p *Parser) ParseText(text string) (*domain.Dataset, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	broken := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrTypeFormat, "malformed CSV", err)
		}
		// an unterminated quote runs the field on through the following lines
		if n := swallowedLines(rec); n > 0 {
			line, _ := r.FieldPos(0)
			p.logger.Warn("unterminated quote swallowed following lines",
				slog.Int("line", line),
				slog.Int("lines", n))
			broken += n + 1
			continue
		}
		rows = append(rows, rec)
	}
	return p.parseRows(rows, broken)
}

// swallowedLines counts the extra report lines folded into one record.
func swallowedLines(rec []string) int {
	n := 0
	for _, field := range rec {
		n += strings.Count(strings.TrimRight(field, "\n"), "\n")
	}
	return n
}

// columnLayout records where each known column sits in the header
type columnLayout struct {
	year, month, day, hour int
	metrics                map[string]int
	forecastHeaders        []string
}

// ParseRows parses a header row followed by data rows. Rows whose cells are
// all blank are ignored entirely.
func (p *Parser) ParseRows(rows [][]string) (*domain.Dataset, error) {
	return p.parseRows(rows, 0)
}

// parseRows counts broken data lines dropped before parsing as skipped rows.
func (p *Parser) parseRows(rows [][]string, broken int) (*domain.Dataset, error) {
	rows = dropBlankRows(rows)
	if len(rows) == 0 {
		return nil, apperrors.NewFormatError("report has no header row")
	}

	header := normalizeHeader(rows[0])
	if len(header) < minHeaderColumns {
		return nil, apperrors.NewFormatError(
			fmt.Sprintf("header has %d columns, need at least %d (年, 月, 日, 时)", len(header), minHeaderColumns)).
			WithContext("columns", len(header))
	}

	layout := p.layout(header)
	ds := &domain.Dataset{
		Records: make([]domain.PowerRecord, 0, len(rows)-1),
		Meta: domain.ParseMeta{
			ForecastColumns: layout.forecastHeaders,
			HasForecast:     len(layout.forecastHeaders) > 0,
			TotalRows:       broken,
			SkippedRows:     broken,
		},
	}

	for i, row := range rows[1:] {
		ds.Meta.TotalRows++
		rec, reason := p.parseRow(i, row, layout)
		if reason != "" {
			ds.Meta.SkippedRows++
			if ds.Meta.SkippedRows <= p.cfg.MaxSkipLogs {
				p.logger.Debug("row skipped",
					slog.Int("row", i+1),
					slog.String("reason", reason))
			}
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	ds.Meta.ValidRows = len(ds.Records)

	if ds.Meta.ValidRows == 0 {
		return nil, apperrors.NewEmptyDatasetError(ds.Meta.TotalRows, ds.Meta.ValidRows, ds.Meta.SkippedRows)
	}

	p.logger.Info("report parsed",
		slog.Int("total_rows", ds.Meta.TotalRows),
		slog.Int("valid_rows", ds.Meta.ValidRows),
		slog.Int("skipped_rows", ds.Meta.SkippedRows),
		slog.Bool("has_forecast", ds.Meta.HasForecast))

	return ds, nil
}

func (p *Parser) layout(header []string) columnLayout {
	l := columnLayout{
		year:    findColumn(header, yearAliases),
		month:   findColumn(header, monthAliases),
		day:     findColumn(header, dayAliases),
		hour:    findColumn(header, hourAliases),
		metrics: make(map[string]int),
	}

	for _, m := range domain.Metrics() {
		switch {
		case m.Name == domain.MetricPriceDifference:
			// always recomputed from the two prices
		case m.Group == domain.GroupForecast:
			fragment, ok := p.cfg.ForecastColumns[m.Name]
			if !ok || fragment == "" {
				continue
			}
			for j, h := range header {
				if strings.Contains(h, fragment) {
					l.metrics[m.Name] = j
					l.forecastHeaders = append(l.forecastHeaders, h)
					break
				}
			}
		default:
			for j, h := range header {
				if h == m.Name {
					l.metrics[m.Name] = j
					break
				}
			}
		}
	}
	return l
}

func (p *Parser) parseRow(index int, row []string, l columnLayout) (domain.PowerRecord, string) {
	var rec domain.PowerRecord

	monthCell, dayCell, hourCell := cell(row, l.month), cell(row, l.day), cell(row, l.hour)
	if monthCell == "" || dayCell == "" || hourCell == "" {
		return rec, "missing time field"
	}

	month, okM := parseInt(monthCell)
	day, okD := parseInt(dayCell)
	hour, okH := parseInt(hourCell)
	if !okM || !okD || !okH {
		return rec, "time field is not an integer"
	}
	if !domain.ValidTimeFields(month, day, hour) {
		return rec, "time field out of range"
	}

	year, ok := parseInt(cell(row, l.year))
	if !ok || year < domain.MinYear || year > domain.MaxYear {
		year = inferYear(index)
	}

	rec.Year, rec.Month, rec.Day, rec.Hour = year, month, day, hour
	rec.Timestamp = domain.FormatTimestamp(year, month, day, hour)

	for name, j := range l.metrics {
		m, _ := domain.LookupMetric(name)
		m.Set(&rec, parseFloat(cell(row, j)))
	}
	rec.RecomputePriceDifference()

	return rec, ""
}

// inferYear assigns a year from the data row position, assuming one full
// year of hourly rows per calendar year.
func inferYear(index int) int {
	year := index/domain.HoursPerYear + domain.MinYear
	return max(domain.MinYear, min(domain.MaxYear, year))
}

func normalizeHeader(row []string) []string {
	header := make([]string, len(row))
	for i, h := range row {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	// trailing empty header cells come from spreadsheet exports
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	return header
}

func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for j, h := range header {
			if strings.EqualFold(h, alias) {
				return j
			}
		}
	}
	return -1
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func cell(row []string, j int) string {
	if j < 0 || j >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[j])
}

// parseInt accepts plain integers and integral decimals such as "3.0",
// which spreadsheet exports produce.
func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// parseFloat returns 0 for anything that is not a finite number.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

var defaultParser = NewParser(DefaultParserConfig(), nil, nil)

// ParseText checks and parses already-decoded report text with the default
// configuration.
func ParseText(text string) (*domain.Dataset, error) {
	if err := decoding.CheckText(text); err != nil {
		return nil, err
	}
	return defaultParser.ParseText(text)
}

// ParseFile decodes and parses raw report bytes with the default configuration.
func ParseFile(raw []byte) (*domain.Dataset, error) {
	return defaultParser.ParseFile(raw)
}
