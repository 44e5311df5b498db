package pricing

import (
	"fmt"
	"strings"
)

// FormatBRL renders a value as Brazilian currency: two decimal digits,
// dot thousands separators, comma decimal. Example: 1500 -> "R$ 1.500,00".
func FormatBRL(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(intPart[i : i+3])
	}

	out := "R$ " + b.String() + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// formatQty renders an informational quantity (km, tons) trimming a
// trailing ",0" so "320,0 km" reads "320 km".
func formatQty(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return strings.ReplaceAll(s, ".", ",")
}
