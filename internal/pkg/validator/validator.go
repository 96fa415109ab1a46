package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

// Validator checks struct tags and reports problems by JSON field name
type Validator struct {
	validate *validator.Validate
}

// ValidationError is one problem with one field. A list of them is the
// details payload of a VALIDATION_ERROR response.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("keyvalue", func(fl validator.FieldLevel) bool {
		_, _, ok := incident.SplitTag(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool {
		return incident.EventType(fl.Field().String()).Valid()
	})

	return &Validator{
		validate: v,
	}
}

// Validate returns the problems with i, or nil when it is valid
func (v *Validator) Validate(i interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := v.validate.Struct(i)
	if err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []ValidationError{{Tag: "invalid", Message: err.Error()}}
		}
		for _, err := range errs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Namespace(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: msgForTag(err),
			})
		}
	}

	return validationErrors
}

// msgForTag returns a human-readable message for a validation tag
func msgForTag(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "e164":
		return fmt.Sprintf("%s must be a phone number in E.164 format", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "keyvalue":
		return fmt.Sprintf("%s must have the form key=value", field)
	case "eventtype":
		return fmt.Sprintf("%s is not a known event type", field)
	default:
		return fmt.Sprintf("%s failed validation for tag: %s", field, fe.Tag())
	}
}
