package receipt

import "strings"

// The upstream service only tolerates a narrow identifier alphabet in
// receipt numbers and supplier names: ASCII letters, digits, the German
// umlaut letters and ß, plus '.' and ';'. Everything else becomes '.'.

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == ';':
		return true
	}
	switch r {
	case 'ä', 'ö', 'ü', 'Ä', 'Ö', 'Ü', 'ß':
		return true
	}
	return false
}

// Sanitize maps every character outside the allowed set to '.'.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if allowedRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('.')
		}
	}
	return b.String()
}

// SanitizeKeepParens is the variant used for supplier names: when the input
// contains a parenthesis, parentheses survive and every other disallowed
// character becomes '.'. Inputs without parentheses pass through untouched.
func SanitizeKeepParens(s string) string {
	if !strings.ContainsAny(s, "()") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if allowedRune(r) || r == '(' || r == ')' {
			b.WriteRune(r)
		} else {
			b.WriteRune('.')
		}
	}
	return b.String()
}

// StripLeadingZeros drops leading zeros from store numbers and product
// codes. "000" collapses to the empty string.
func StripLeadingZeros(s string) string {
	return strings.TrimLeft(s, "0")
}
