package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DetailResponse is the generic error body: {"detail": "..."}.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func Detail(msg string) DetailResponse {
	return DetailResponse{Detail: msg}
}

// FieldErrors is the field-keyed body returned on validation failures,
// e.g. {"username": "This field is required."}.
type FieldErrors map[string]string

func FieldError(field, msg string) FieldErrors {
	return FieldErrors{field: msg}
}

func ValidationError(errs validator.ValidationErrors) FieldErrors {
	fieldErrs := FieldErrors{}

	for _, err := range errs {
		field := strings.ToLower(err.Field())

		switch err.ActualTag() {
		case "required":
			fieldErrs[field] = "This field is required."
		case "max":
			fieldErrs[field] = fmt.Sprintf("Ensure this field has no more than %s characters.", err.Param())
		default:
			fieldErrs[field] = fmt.Sprintf("This field failed validation on the '%s' rule.", err.ActualTag())
		}
	}

	return fieldErrs
}
