package middleware

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var actionNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.:-]{0,63}$`)

var errorMessages = map[string]string{
	"required":    "Field is required",
	"action_name": "Action must start with a letter and contain only letters, digits, '_', '.', ':' or '-' (max 64)",
	"max":         "Value is too long",
	"uuid":        "Invalid identifier",
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator.
// It must run before the first request is bound.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		if err := v.RegisterValidation("action_name", func(fl validator.FieldLevel) bool {
			return actionNamePattern.MatchString(fl.Field().String())
		}); err != nil {
			panic(err)
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// ValidationErrors flattens a binding error into per-field messages. It
// returns nil when err is not a validation error.
func ValidationErrors(err error) []ValidationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		msg := errorMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, ValidationError{Field: e.Field(), Message: msg})
	}
	return out
}
