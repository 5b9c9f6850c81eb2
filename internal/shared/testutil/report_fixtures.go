package testutil

import (
	"fmt"
	"strings"
	"time"

	"gridpulse/pkg/contracts/domain"
)

// ReportHeader returns the column layout of the hourly source report:
// the four time columns followed by every metric in catalog order.
func ReportHeader(withForecast bool) []string {
	header := []string{"年", "月", "日", "时"}
	for _, m := range domain.Metrics() {
		if m.Group == domain.GroupForecast && !withForecast {
			continue
		}
		header = append(header, m.Name)
	}
	return header
}

// ValueFunc supplies the cell for metric name on the i-th generated row.
type ValueFunc func(i int, name string) string

// ConstantValues fills every metric cell with v.
func ConstantValues(v string) ValueFunc {
	return func(int, string) string { return v }
}

// HourlyRows generates n consecutive hourly rows starting at start, laid out
// to match header.
func HourlyRows(header []string, start time.Time, n int, values ValueFunc) [][]string {
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		row := make([]string, len(header))
		for j, col := range header {
			switch col {
			case "年":
				row[j] = fmt.Sprint(ts.Year())
			case "月":
				row[j] = fmt.Sprint(int(ts.Month()))
			case "日":
				row[j] = fmt.Sprint(ts.Day())
			case "时":
				row[j] = fmt.Sprint(ts.Hour())
			default:
				row[j] = values(i, col)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ReportCSV joins header and rows into CSV text with \n line endings.
func ReportCSV(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// SampleReportCSV returns a small well-formed report of n hours from 2022-01-01.
func SampleReportCSV(n int) string {
	header := ReportHeader(false)
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	return ReportCSV(header, HourlyRows(header, start, n, ConstantValues("100")))
}
