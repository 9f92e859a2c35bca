package orders

import "strings"

const defaultCountryCode = "1"

// NormalizePhone reduces a user-entered phone number to "+<digits>". Ten digit
// numbers are assumed to be North American and receive the +1 prefix. Inputs
// with fewer than seven digits normalise to the empty string.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	international := strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "00")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	value := digits.String()
	if strings.HasPrefix(trimmed, "00") {
		value = strings.TrimPrefix(value, "00")
	}
	if len(value) < 7 {
		return ""
	}
	if !international && len(value) == 10 {
		value = defaultCountryCode + value
	}
	return "+" + value
}

// SamePhone compares two phone numbers after normalisation.
func SamePhone(a, b string) bool {
	na, nb := NormalizePhone(a), NormalizePhone(b)
	return na != "" && na == nb
}
