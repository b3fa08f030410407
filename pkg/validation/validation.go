// Package validation runs go-playground/validator struct tags and renders
// the first failure as a validation_failed domain error.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "orbit/pkg/domain-errors"
	pkgstrings "orbit/pkg/platform/strings"
)

// phonePattern accepts digits with an optional leading +, spaces, dashes
// and parentheses.
var phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}()

// messages maps a tag to its sentence. %[1]s is the field and %[2]s the
// tag parameter.
var messages = map[string]string{
	"required": "%[1]s is required",
	"notblank": "%[1]s must not be blank",
	"email":    "%[1]s must be a valid email",
	"url":      "%[1]s must be a valid url",
	"uuid":     "%[1]s must be a valid uuid",
	"phone":    "%[1]s must be a valid phone number",
	"min":      "%[1]s must be at least %[2]s",
	"max":      "%[1]s must be at most %[2]s",
	"oneof":    "%[1]s must be one of [%[2]s]",
}

func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "validate request")
	}
	return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
}

// ErrorMessage describes the first failed field, named in snake_case.
func ErrorMessage(err error) string {
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return "invalid request body"
	}
	fe := failures[0]
	name := fe.Field()
	if name == "" {
		name = fe.StructField()
	}
	if name == "" {
		return "invalid request body"
	}
	field := pkgstrings.ToSnakeCase(name)
	if format, ok := messages[fe.ActualTag()]; ok {
		return fmt.Sprintf(format, field, fe.Param())
	}
	return field + " is invalid"
}
