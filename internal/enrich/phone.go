package enrich

import "strings"

// digits keeps only the ASCII digits of s.
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// ValidPhoneFormat reports whether v has the digit count of a Brazilian
// phone number with area code: 10 for landlines, 11 for mobiles. Formatting
// characters are ignored. This is a format check only.
func ValidPhoneFormat(v string) bool {
	n := len(digits(v))
	return n == 10 || n == 11
}

// NormalizeTaxID strips everything but digits from a CNPJ.
func NormalizeTaxID(v string) string {
	return digits(v)
}

// ValidTaxIDLength reports whether a normalized CNPJ has 14 digits.
func ValidTaxIDLength(normalized string) bool {
	return len(normalized) == 14
}
