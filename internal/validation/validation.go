// Package validation holds the form checks the web client performs before it
// calls the backend. They spare a round trip; the backend remains the authority.
package validation

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Error is a validation failure carrying the message shown to the user.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Message returns the user-facing message of a validation error, or "" when
// err is not one.
func Message(err error) string {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Message
	}
	return ""
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		// notblank rejects strings made only of whitespace; required alone lets them through.
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// check validates form and maps the first failing rule to its message. The key
// of messages is "Field.tag".
func check(form any, messages map[string]string) error {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if msg, ok := messages[fe.StructField()+"."+fe.Tag()]; ok {
		return &Error{Field: fe.StructField(), Message: msg}
	}
	return &Error{Field: fe.StructField(), Message: fe.Error()}
}
