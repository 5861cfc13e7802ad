package dto

import (
	"dinedash-backend/internal/apperr"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type crossChecker interface {
	crossCheck(prefix string, fields map[string]string)
}

// Validator runs struct tag rules and then the request's own cross-field
// rules, and reports every problem at once as a validation error keyed by
// JSON field path.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	fields := make(map[string]string)

	if err := v.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Wrap(apperr.KindValidation, err, "request validation failed")
		}
		for _, fe := range verrs {
			fields[fieldPath(fe)] = describe(fe)
		}
	}

	if cc, ok := i.(crossChecker); ok {
		cc.crossCheck("", fields)
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// fieldPath drops the root struct name: "CheckoutRequest.order.items" -> "order.items".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " entry"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
