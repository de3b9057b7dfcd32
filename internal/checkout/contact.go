package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Contact is the lead traveler's contact form filled in at step 1.
type Contact struct {
	FirstName    string `json:"firstName" validate:"required,personname"`
	LastName     string `json:"lastName" validate:"required,personname"`
	Email        string `json:"email" validate:"required,email"`
	ConfirmEmail string `json:"confirmEmail" validate:"required,eqfield=Email"`
	Phone        string `json:"phone" validate:"required,phone10"`
}

// ValidationErrors maps a form field to a message for the user.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "valid"
	}
	parts := make([]string, 0, len(v))
	for k, msg := range v {
		parts = append(parts, k+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var phoneRe = regexp.MustCompile(`^[0-9]{10}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return validPersonName(fl.Field().String())
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

// validPersonName accepts letters only, at least two of them.
func validPersonName(s string) bool {
	s = strings.TrimSpace(s)
	n := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
		n++
	}
	return n >= 2
}

// Validate checks c and returns nil when every field passes.
func (c Contact) Validate() ValidationErrors {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return ValidationErrors{"form": err.Error()}
	}
	out := make(ValidationErrors, len(fes))
	for _, fe := range fes {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "personname":
		return "use letters only, at least 2"
	case "email":
		return "enter a valid email address"
	case "eqfield":
		return "emails do not match"
	case "phone10":
		return "enter a 10 digit phone number"
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}
