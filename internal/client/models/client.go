package models

import (
	"errors"
	"strings"
	"unicode/utf8"

	id "clientdesk/pkg/domain"
	dErrors "clientdesk/pkg/domain-errors"
	"clientdesk/pkg/email"
)

// ErrDuplicateEmail is returned by create and update when another client
// already owns the email address (compared case-insensitively).
var ErrDuplicateEmail = errors.New("email address already in use")

// MaxNameLength bounds Client.Name, counted in characters.
const MaxNameLength = 128

// Client is one customer contact held by the registry.
//
// Invariants:
//   - ID is assigned by the registry and never changes
//   - Name is non-empty
//   - Email is unique across the registry, compared case-insensitively
//
// Phone format is checked by the form layer, not here.
type Client struct {
	ID    id.ClientID `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Phone string      `json:"phone"`
}

// Draft is a client that has not been stored yet. It has no ID field, so a
// caller cannot choose the identifier of a new record.
type Draft struct {
	Name  string
	Email string
	Phone string
}

// NewDraft trims the fields and validates the model invariants.
func NewDraft(name, emailAddr, phone string) (Draft, error) {
	d := Draft{
		Name:  strings.TrimSpace(name),
		Email: email.Normalize(emailAddr),
		Phone: strings.TrimSpace(phone),
	}
	if err := validateFields(d.Name, d.Email); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// WithID builds the stored form of d.
func (d Draft) WithID(clientID id.ClientID) *Client {
	return &Client{ID: clientID, Name: d.Name, Email: d.Email, Phone: d.Phone}
}

// NewClient validates a full record, used by update where the caller names
// the record to replace.
func NewClient(clientID id.ClientID, name, emailAddr, phone string) (*Client, error) {
	if clientID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client id must be positive")
	}
	d, err := NewDraft(name, emailAddr, phone)
	if err != nil {
		return nil, err
	}
	return d.WithID(clientID), nil
}

// EmailKey is the comparison key used for uniqueness checks.
func (c *Client) EmailKey() string {
	return email.Key(c.Email)
}

// Clone returns an independent copy.
func (c *Client) Clone() *Client {
	cp := *c
	return &cp
}

func validateFields(name, emailAddr string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "client name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "client name must be 128 characters or less")
	}
	if emailAddr == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "client email cannot be empty")
	}
	return nil
}
