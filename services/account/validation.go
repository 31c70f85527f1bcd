package account

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var nonDigits = regexp.MustCompile(`\D`)

// Digits strips everything but digits, as CEP and CNPJ are stored.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// ValidationError reports the first invalid input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func digitsOfLen(n int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return len(v) == n && Digits(v) == v
	}
}

// NewValidator builds the validator with the cep and cnpj rules and json field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cep", digitsOfLen(8))
	_ = v.RegisterValidation("cnpj", digitsOfLen(14))
	return v
}

// toValidationError turns the first validator failure into a ValidationError.
func toValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return &ValidationError{Field: field, Message: messageFor(fe)}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must have %s characters", fe.Param())
	case "eqfield":
		return "does not match"
	case "cep":
		return "must have 8 digits"
	case "cnpj":
		return "must have 14 digits"
	}
	return "is invalid"
}
