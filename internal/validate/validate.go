// Package validate wraps go-playground/validator with the custom rules used by
// ttt descriptors and runtime configuration, and converts validator failures
// into field violations that name fields by their file key.
package validate

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"ttt/internal/errors"
)

var packageNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// validate is a package-level singleton; building a validator caches struct
// metadata, so it is shared by every call.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldKey)

	mustRegister(v, "pkgname", func(fl validator.FieldLevel) bool {
		return packageNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})
	mustRegister(v, "constraint", func(fl validator.FieldLevel) bool {
		_, err := semver.NewConstraint(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "relpath", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		return !strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "\\") && !strings.Contains(p, ":")
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %q: %v", tag, err))
	}
}

// fieldKey names a struct field after the key it is read from, preferring
// the koanf tag, then yaml, then json.
func fieldKey(fld reflect.StructField) string {
	for _, tag := range []string{"koanf", "yaml", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// Struct validates s and returns a *errors.ValidationError attributed to
// path when any rule fails.
func Struct(path string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	violations := Violations(err)
	if len(violations) == 0 {
		return errors.NewValidationError(path, []errors.FieldViolation{
			{Field: "-", Rule: "invalid", Reason: err.Error()},
		})
	}
	return errors.NewValidationError(path, violations)
}

// Violations converts a validator error into field violations.
func Violations(err error) []errors.FieldViolation {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return nil
	}

	out := make([]errors.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errors.FieldViolation{
			Field:  fe.Field(),
			Rule:   fe.Tag(),
			Reason: reason(fe),
		})
	}
	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "semver":
		return fmt.Sprintf("%q is not a semantic version", fe.Value())
	case "constraint":
		return fmt.Sprintf("%q is not a version constraint", fe.Value())
	case "http_url", "url":
		return fmt.Sprintf("%q is not an absolute http(s) URL", fe.Value())
	case "email":
		return fmt.Sprintf("%q is not an e-mail address", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "pkgname":
		return fmt.Sprintf("%q must be lowercase letters, digits, '-' or '_' and start with a letter", fe.Value())
	case "singleline":
		return "must be a single line"
	case "relpath":
		return fmt.Sprintf("%q must be a path relative to the project root", fe.Value())
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}
