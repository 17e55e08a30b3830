package exporter

import "strconv"

// timeLayout is the timestamp form used in the plain-text summary.
const timeLayout = "2006-01-02 15:04:05"

// formatNumber renders a float without trailing zeros, matching how numeric
// cells render in the cleaned output.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
