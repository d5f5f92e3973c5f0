package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationErrorBody is written for request bodies that fail validation.
type ValidationErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// validateStruct returns nil or a *ValidationErrorBody describing each
// failing field.
func validateStruct(s any) *ValidationErrorBody {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	body := &ValidationErrorBody{
		Error:   "validation_error",
		Message: "validation failed for some fields",
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		body.Message = err.Error()
		return body
	}

	body.Fields = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			body.Fields[field] = fmt.Sprintf("%s is required", field)
		case "max":
			body.Fields[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			body.Fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", field, fe.Tag())
		}
	}
	return body
}
