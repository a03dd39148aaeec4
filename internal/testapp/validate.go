package testapp

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldMessage is one rejected field
type FieldMessage struct {
	Field   string
	Message string
}

// ValidationError lists every rejected field of a contact
type ValidationError struct {
	Fields []FieldMessage
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "Contact validation failed: " + strings.Join(parts, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateContact(c Contact) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldMessage{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Path `%s` is required.", fe.Field())
	case "datetime":
		return "Birthdate is invalid"
	case "email":
		return "Email is invalid"
	case "numeric":
		return "Phone number is invalid"
	case "max":
		return fmt.Sprintf("Path `%s` (`%v`) is longer than the maximum allowed length (%s).", fe.Field(), fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("Path `%s` is invalid.", fe.Field())
	}
}
