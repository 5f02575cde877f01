package utils

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// FormatDate turns a stored timestamp into its display form. Unparseable
// input comes back unchanged.
func FormatDate(value string) string {
	if value == "" {
		return ""
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t.Format("Jan 02, 2006 03:04 PM")
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.Format("Jan 02, 2006")
	}
	return value
}

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone accepts at least ten characters of digits with an optional '+'.
func ValidatePhone(phone string) bool {
	if len(phone) < 10 {
		return false
	}
	digits := strings.ReplaceAll(phone, "+", "")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
