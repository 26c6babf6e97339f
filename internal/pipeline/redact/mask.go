// internal/pipeline/redact/mask.go
package redact

import "strings"

// maskEmail keeps the first character of the local part and the full domain:
// "john.doe@example.com" -> "j***@example.com".
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return maskGeneric(email)
	}
	return email[:1] + "***" + email[at:]
}

// maskPhone keeps the last two digits.
func maskPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 2 {
		return maskGeneric(phone)
	}

	var b strings.Builder
	seen := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			seen++
			if seen > digits-2 {
				b.WriteRune(r)
			} else {
				b.WriteRune('*')
			}
		}
	}
	return b.String()
}

// maskCard keeps the last four digits in the familiar receipt format.
func maskCard(card string) string {
	var digits []rune
	for _, r := range card {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return maskGeneric(card)
	}
	return "**** **** **** " + string(digits[len(digits)-4:])
}

// maskGeneric obscures everything but the first character.
func maskGeneric(s string) string {
	if s == "" {
		return s
	}
	return s[:1] + "***"
}
