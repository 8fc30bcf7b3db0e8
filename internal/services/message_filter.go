package services

import (
	"regexp"

	"chapacerto/internal/apperrors"
)

// FilterRule maps a pattern to the reason a message is rejected. The table is
// deliberately aggressive: a long part number will be blocked too. That false
// positive is the accepted price of keeping phone numbers out of the chat.
type FilterRule struct {
	Pattern *regexp.Regexp
	Reason  string
}

// Brazilian national format: optional 2-digit area code, optional mobile 9,
// then 8 digits, with spaces, dots or dashes as separators.
var filterRules = []FilterRule{
	{
		Pattern: regexp.MustCompile(`(?:\d{2}[\s.\-]?)?(?:9[\s.\-]?)?\d{4}[\s.\-]?\d{4}`),
		Reason:  "looks like a phone number",
	},
	{
		Pattern: regexp.MustCompile(`(?i)@|gmail|hotmail|outlook|yahoo`),
		Reason:  "looks like an email address",
	},
	{
		Pattern: regexp.MustCompile(`(?i)\b(zap|whats|whatsapp|insta|instagram|telegram|fone|ligar|chama|contato)\b|call\s+me`),
		Reason:  "contact-app keyword",
	},
}

// maxDigits is a coarse anti-obfuscation heuristic: six or more digits spread
// through the message is treated as a spelled-out number.
const maxDigits = 6

var digitPattern = regexp.MustCompile(`\d`)

// FilterOutbound inspects chat text before persistence and returns a Filter
// error naming the rule that rejected it. It is independent of payment state:
// the number stays out of the chat even after it has been revealed through
// the contact gate.
func FilterOutbound(text string) error {
	for _, rule := range filterRules {
		if rule.Pattern.MatchString(text) {
			return apperrors.Filter("message blocked: %s", rule.Reason)
		}
	}
	if len(digitPattern.FindAllString(text, -1)) >= maxDigits {
		return apperrors.Filter("message blocked: too many digits")
	}
	return nil
}
