// internal/utils/validator.go
package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Gateway order ids, payment ids and receipts: e.g. order_Nq3..., pay_Nq3...,
// pi_3Nq... for Stripe.
var gatewayRefPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{3,64}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("gateway_ref", validateGatewayRef)

	// Report fields by their JSON names, as the client sent them.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateGatewayRef(fl validator.FieldLevel) bool {
	return gatewayRefPattern.MatchString(fl.Field().String())
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   e.Field(),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "uuid", "uuid4":
		return e.Field() + " must be a valid UUID"
	case "hexadecimal":
		return e.Field() + " must be hex encoded"
	case "len":
		return e.Field() + " must be exactly " + e.Param() + " characters"
	case "gateway_ref":
		return e.Field() + " is not a valid payment gateway reference"
	default:
		return e.Field() + " is invalid"
	}
}
