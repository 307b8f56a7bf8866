package inspect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors holds validation errors per field.
// JSON output: {"errors": {"field": ["msg1", "msg2"]}}
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *Errors) add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs, ok := e.Bag[field]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}()

// Validate checks v's struct tags and returns the failures as a bag. A nil
// result means v is valid.
func Validate(v any) *Errors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	bag := &Errors{}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		bag.add("_", err.Error())
		return bag
	}
	for _, fe := range fields {
		bag.add(fe.Field(), message(fe))
	}
	return bag
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "oneof":
		return fmt.Sprintf("The %s field must be one of: %s.", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid (%s).", fe.Field(), fe.Tag())
	}
}
