package batch

import "strings"

// CleanAccount trims whitespace and a leading "@" and reports whether the
// remainder is a valid handle: 1 to 15 letters, digits or underscores.
func CleanAccount(raw string) (string, bool) {
	account := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if len(account) < 1 || len(account) > 15 {
		return account, false
	}
	for _, r := range account {
		isLower := r >= 'a' && r <= 'z'
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if !isLower && !isUpper && !isDigit && r != '_' {
			return account, false
		}
	}
	return account, true
}
