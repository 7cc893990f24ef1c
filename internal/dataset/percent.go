package dataset

import (
	"strconv"
	"strings"
)

// FormatPercent normalizes a coverage-rate cell to "NN.NN%" display form.
// Source cells may hold a fraction in 0..1 ("0.875"), a pre-formatted
// percentage ("87.50%"), or nothing at all; missing and unparseable values
// render as "0.00%".
func FormatPercent(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "0.00%"
	}

	if strings.Contains(value, "%") {
		return value
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "0.00%"
	}

	return strconv.FormatFloat(n*100, 'f', 2, 64) + "%"
}

// PercentValue parses a formatted percentage back to its numeric value for
// comparison, stripping a trailing percent sign. Unparseable input yields 0.
func PercentValue(formatted string) float64 {
	trimmed := strings.TrimSuffix(strings.TrimSpace(formatted), "%")

	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}

	return n
}
