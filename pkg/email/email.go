// Package email derives presentation values from email addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName turns the local part of an address into a capitalised name:
// "jane.doe+hod@uni.edu" becomes "Jane Doe Hod". An address with no usable
// local part returns the address unchanged.
func DisplayName(address string) string {
	address = strings.TrimSpace(address)
	localPart := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return address
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
