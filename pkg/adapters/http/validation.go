package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/cartography/pkg/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateBody checks a decoded payload against its validate tags.
func validateBody(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := jsonName(e.Field())
	switch e.Tag() {
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, e.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func jsonName(field string) string {
	switch field {
	case "DelayMS":
		return "delay_ms"
	default:
		return strings.ToLower(field)
	}
}
