package tracker

import (
	"math"
	"strconv"
	"strings"
)

// ParseMoneyFormat parses free-form amount input with Vietnamese shorthand
// suffixes: "m" and "tr" multiply by a million, "k" by a thousand. Dots and
// commas are treated as thousands separators and stripped, so fractional
// amounts are not expressible. Trailing non-numeric text such as a currency
// sign is ignored. Unparseable input yields 0; callers decide
// whether 0 means invalid (expenses) or "clear" (monthly limit).
func ParseMoneyFormat(input string) int64 {
	str := strings.ToLower(strings.TrimSpace(input))
	str = strings.Join(strings.Fields(str), "")
	if str == "" {
		return 0
	}

	multiplier := int64(1)
	switch {
	case strings.Contains(str, "m"):
		multiplier = 1_000_000
		str = strings.Replace(str, "m", "", 1)
	case strings.Contains(str, "k"):
		multiplier = 1_000
		str = strings.Replace(str, "k", "", 1)
	case strings.Contains(str, "tr"):
		multiplier = 1_000_000
		str = strings.Replace(str, "tr", "", 1)
	}

	str = strings.ReplaceAll(str, ".", "")
	str = strings.ReplaceAll(str, ",", "")

	number, ok := parseLeadingFloat(str)
	if !ok {
		return 0
	}
	return int64(math.Round(number * float64(multiplier)))
}

// parseLeadingFloat parses the longest numeric prefix of s, so a trailing
// unit like "5000đ" does not discard the amount.
func parseLeadingFloat(s string) (float64, bool) {
	for i := len(s); i > 0; i-- {
		n, err := strconv.ParseFloat(s[:i], 64)
		if err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n, true
		}
	}
	return 0, false
}

// FormatCurrency renders an amount the way the UI shows it: grouped by dots
// with a trailing đồng sign, e.g. 1500000 -> "1.500.000 ₫".
func FormatCurrency(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	b.WriteString(" ₫")
	return b.String()
}
