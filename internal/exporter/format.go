package exporter

import (
	"strconv"

	"github.com/shopspring/decimal"

	"gridpulse/pkg/contracts/domain"
)

// formatFloat renders a metric at full precision without exponent notation.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatMetric renders one metric value; the price difference keeps two decimals.
func formatMetric(name string, f float64) string {
	if name == domain.MetricPriceDifference {
		return decimal.NewFromFloat(f).Round(2).String()
	}
	return formatFloat(f)
}

// formatInt formats an integer value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
