// internal/pipeline/redact/rules.go
package redact

import (
	"regexp"
	"strings"

	"portlink-orchestrator/internal/models"
)

const redactedPlaceholder = "[REDACTED]"

// Rule describes one confidentiality category. The field check and the value
// check are independent: a field can match by name regardless of content, and
// a string value can match by pattern regardless of field name.
type Rule struct {
	Name        string
	Reason      string
	FieldNames  []string
	ValueRegex  *regexp.Regexp
	FieldAction string // applied when the field name matches
	ValueAction string // applied when the value pattern matches inside a string
	MinDigits   int    // value matches with fewer digits are ignored
	Mask        func(string) string
}

var rules = []Rule{
	{
		Name:   "credentials",
		Reason: "credential or secret material",
		FieldNames: []string{
			"password", "passwd", "secret", "token", "authtoken", "accesstoken",
			"refreshtoken", "apikey", "api_key", "credential", "credentials",
			"privatekey", "private_key",
		},
		ValueRegex:  regexp.MustCompile(`(?i)\b(bearer\s+[A-Za-z0-9._+/=-]{8,}|sk-[A-Za-z0-9]{8,})`),
		FieldAction: models.ViolationActionRemoved,
		ValueAction: models.ViolationActionRedacted,
	},
	{
		Name:        "email",
		Reason:      "email address",
		FieldNames:  []string{"email", "emailaddress", "email_address", "contactemail"},
		ValueRegex:  regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		FieldAction: models.ViolationActionMasked,
		ValueAction: models.ViolationActionMasked,
		Mask:        maskEmail,
	},
	{
		Name:        "phone",
		Reason:      "phone number",
		FieldNames:  []string{"phone", "phonenumber", "phone_number", "mobile", "contactphone"},
		ValueRegex:  regexp.MustCompile(`\+?\d[\d().\s-]{7,14}\d`),
		// nine digits minimum so ISO dates never read as phone numbers
		MinDigits:   9,
		FieldAction: models.ViolationActionMasked,
		ValueAction: models.ViolationActionMasked,
		Mask:        maskPhone,
	},
	{
		Name:        "payment_card",
		Reason:      "payment card number",
		FieldNames:  []string{"cardnumber", "card_number", "creditcard", "credit_card", "pan"},
		ValueRegex:  regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
		FieldAction: models.ViolationActionMasked,
		ValueAction: models.ViolationActionMasked,
		Mask:        maskCard,
	},
	{
		Name:   "internal_identifier",
		Reason: "internal system identifier",
		FieldNames: []string{
			"internalid", "internal_id", "employeeid", "employee_id",
			"systemid", "system_id", "dbid", "db_id",
		},
		FieldAction: models.ViolationActionRedacted,
	},
	{
		Name:   "financial",
		Reason: "financial figure",
		FieldNames: []string{
			"revenue", "profit", "margin", "cost", "costs", "salary",
			"iban", "accountnumber", "account_number",
		},
		FieldAction: models.ViolationActionRedacted,
	},
}

// fieldMatches reports whether a field name falls under the rule. Matching is
// case-insensitive on the bare key.
func (r *Rule) fieldMatches(key string) bool {
	lower := strings.ToLower(key)
	for _, name := range r.FieldNames {
		if lower == name {
			return true
		}
	}
	return false
}

// isSanitized reports whether a string already carries mask or placeholder
// output. Sanitized values are skipped so running the validator on its own
// output records nothing new.
func isSanitized(s string) bool {
	return s == redactedPlaceholder || strings.Contains(s, "***")
}
