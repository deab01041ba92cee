package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// FieldError is one failed rule, ready for the error details of a response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries every failed rule of a request body.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, ", ")
}

// Struct validates s with its `validate` tags and turns failures into
// human messages such as "share must be at most 1".
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		numeric = true
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	case "uuid", "uuid4", "uuid7":
		return field + " must be a valid UUID"
	case "max", "lte":
		if numeric {
			return fmt.Sprintf("%s must be at most %s", field, param)
		}
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "min", "gte":
		if numeric {
			return fmt.Sprintf("%s must be at least %s", field, param)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	}
	return field + " is invalid"
}
