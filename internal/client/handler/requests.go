package handler

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"clientdesk/internal/client/models"
	id "clientdesk/pkg/domain"
	dErrors "clientdesk/pkg/domain-errors"
)

// PhoneLength is the number of digits a phone number must have.
const PhoneLength = 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so messages match the payload the caller sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors maps a field name to a human-readable problem.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+fe[f])
	}
	return strings.Join(parts, "; ")
}

// AsFieldErrors extracts per-field problems from a validation error.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// CreateClientRequest is the payload of the create form.
type CreateClientRequest struct {
	Name  string `json:"name" validate:"required,max=128"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,number,len=10"`
}

// Normalize trims surrounding whitespace from every field.
func (r *CreateClientRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

// Validate checks presence and format of every field. Email uniqueness is the
// registry's job.
func (r *CreateClientRequest) Validate() error {
	return validateStruct(r)
}

// ToDraft converts the request into a registry draft.
func (r *CreateClientRequest) ToDraft() models.Draft {
	return models.Draft{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

// UpdateClientRequest is the payload of the edit form. The id comes from the
// route, never from the body.
type UpdateClientRequest struct {
	Name  string `json:"name" validate:"required,max=128"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,number,len=10"`
}

// Normalize trims surrounding whitespace from every field.
func (r *UpdateClientRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

// Validate checks presence and format of every field.
func (r *UpdateClientRequest) Validate() error {
	return validateStruct(r)
}

// ToClient builds the replacement record for clientID.
func (r *UpdateClientRequest) ToClient(clientID id.ClientID) *models.Client {
	return &models.Client{ID: clientID, Name: r.Name, Email: r.Email, Phone: r.Phone}
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate request")
	}

	fe := make(FieldErrors, len(verrs))
	for _, ve := range verrs {
		if _, seen := fe[ve.Field()]; seen {
			continue
		}
		fe[ve.Field()] = describeTag(ve)
	}
	return dErrors.Wrap(fe, dErrors.CodeValidation, "invalid client request")
}

func describeTag(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "number":
		return "must contain only digits"
	case "len":
		return "must be exactly " + ve.Param() + " digits"
	case "max":
		return "must be at most " + ve.Param() + " characters"
	default:
		return "is invalid"
	}
}
