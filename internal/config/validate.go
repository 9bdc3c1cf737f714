package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/beekhof/shift-sync/internal/syncerr"
)

var validate = newValidator().validateStruct

type structValidator struct {
	v *validator.Validate
}

func newValidator() *structValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON key so errors match what users write.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})

	return &structValidator{v: v}
}

// validateStruct checks the struct tags of s and wraps every failure in
// syncerr.ErrConfiguration.
func (sv *structValidator) validateStruct(s any) error {
	err := sv.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", syncerr.ErrConfiguration, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", syncerr.ErrConfiguration, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s must be provided", field)
	case "required_without":
		return fmt.Sprintf("%s must be provided when %s is empty", field, strings.ToLower(fe.Param()))
	case "timezone":
		return fmt.Sprintf("%s %q is not a known IANA time zone", field, fe.Value())
	case "url":
		return fmt.Sprintf("%s %q is not an absolute URL", field, fe.Value())
	case "regexp":
		return fmt.Sprintf("%s %q is not a valid regular expression", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}
