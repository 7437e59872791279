// Package domain holds typed identifiers shared across modules.
//
// Identifiers are parsed once at the trust boundary (path parameters, form
// values) and passed around as typed values afterwards, so a raw string or an
// unrelated integer cannot be confused with a client id.
package domain

import (
	"strconv"

	dErrors "clientdesk/pkg/domain-errors"
)

// ClientID identifies a client record. Values are allocated by the registry
// starting at 1 and are never reused.
type ClientID int64

// maxClientIDDigits bounds input before it reaches strconv.
const maxClientIDDigits = 19

// ParseClientID parses a positive decimal client id.
func ParseClientID(s string) (ClientID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "client id is required")
	}
	if len(s) > maxClientIDDigits {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "client id is too long")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "client id must be numeric")
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "client id out of range")
	}
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "client id must be positive")
	}
	return ClientID(v), nil
}

func (id ClientID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
