package types

// CodeLength is the number of digits in every secret code.
const CodeLength = 4

// IsValidCode reports whether s is exactly CodeLength ASCII digits.
func IsValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
