// Package email holds helpers for addressing registrants in outbound mail.
package email

import (
	"strings"
	"unicode"
)

// GreetingName derives a display name from the local part of an address, for
// messages where the registrant's name is unknown ("asha.menon@x" -> "Asha Menon").
func GreetingName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || unicode.IsDigit(r)
	})
	if len(parts) == 0 {
		return "Registrant"
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
