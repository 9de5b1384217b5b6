package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field name to its messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Has reports whether field has at least one message.
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Fields returns the field names in stable order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge copies other's messages into fe.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		fe[field] = append(fe[field], msgs...)
	}
}

// Result is the outcome of validating a typed form value: either the value
// itself or a non-empty set of field errors.
type Result[T any] struct {
	Value  T
	Errors FieldErrors
}

// Valid reports whether validation produced no field errors.
func (r Result[T]) Valid() bool {
	return len(r.Errors) == 0
}

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

func engine() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidateUsername(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return ValidatePassword(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return ValidateGroupSlug(fl.Field().String()) == nil
		})
		validate = v
	})
	return validate
}

// Check validates value against its `validate` struct tags.
func Check[T any](value T) Result[T] {
	res := Result[T]{Value: value}

	err := engine().Struct(value)
	if err == nil {
		return res
	}

	res.Errors = FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors.Add("__all__", err.Error())
		return res
	}
	for _, fe := range verrs {
		res.Errors.Add(fe.Field(), message(fe))
	}
	return res
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	case "username":
		return capitalize(ValidateUsername(fe.Value().(string)))
	case "password":
		return capitalize(ValidatePassword(fe.Value().(string)))
	case "slug":
		return capitalize(ValidateGroupSlug(fe.Value().(string)))
	default:
		return fmt.Sprintf("Failed the %q check.", fe.Tag())
	}
}

func capitalize(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
