// Package email holds the comparison rules for client email addresses.
package email

import "strings"

// Normalize trims surrounding whitespace. Case is preserved so records keep
// the address exactly as it was entered.
func Normalize(address string) string {
	return strings.TrimSpace(address)
}

// Key returns the form used for uniqueness checks: trimmed and lowercased.
// Two addresses collide when their keys are equal.
func Key(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
