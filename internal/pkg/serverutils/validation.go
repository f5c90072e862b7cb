package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs the struct's `validate` tags and reports every failed
// field in one validation error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Validation("invalid request", err.Error())
	}

	details := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		if fe.Param() != "" {
			details[i] = fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param())
		} else {
			details[i] = fmt.Sprintf("%s: %s", fe.Field(), fe.Tag())
		}
	}
	return apperror.Validation("invalid request", strings.Join(details, "; "))
}
