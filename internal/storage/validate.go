package storage

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// check validates a struct and converts failures into ErrValidation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return errors.Validationf("%s", strings.Join(msgs, "; "))
	}
	return errors.Validationf("%v", err)
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL", field)
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

// CheckRule verifies that rule is a usable validator tag and that value,
// when set, satisfies it. Unknown tags make the validator panic, which is
// reported as a validation error.
func CheckRule(rule, value string) (err error) {
	if rule == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Validationf("invalid validation rule %q: %v", rule, r)
		}
	}()
	if value == "" {
		// Parse the tag against a throwaway value so a bad rule is still caught.
		_ = validate.Var("", "omitempty,"+rule)
		return nil
	}
	if verr := validate.Var(value, rule); verr != nil {
		return errors.Validationf("default %q does not satisfy rule %q", value, rule)
	}
	return nil
}
