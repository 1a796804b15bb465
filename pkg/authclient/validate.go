package authclient

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterInput is the sign-up form. Password2 must repeat Password and is
// never sent to the server.
type RegisterInput struct {
	Username  string `validate:"required,min=3"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	Password2 string `validate:"required,eqfield=Password"`
	FirstName string `validate:"omitempty"`
}

// ValidationError carries field-keyed messages from the pre-flight check.
// Keys match the wire field names (username, email, password, password2).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// Validate runs the client-side checks that gate any network call.
func (in RegisterInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		field := fieldKey(e.Field())
		switch e.Tag() {
		case "required":
			fields[field] = "field is required"
		case "email":
			fields[field] = "invalid email format"
		case "min":
			fields[field] = "must be at least " + e.Param() + " characters"
		case "eqfield":
			fields[field] = "passwords do not match"
		default:
			fields[field] = "validation failed on " + e.Tag()
		}
	}
	return &ValidationError{Fields: fields}
}

func fieldKey(structField string) string {
	switch structField {
	case "Password2":
		return "password2"
	case "FirstName":
		return "first_name"
	default:
		return strings.ToLower(structField)
	}
}
