package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

const DefaultPhoneRegion = "US"

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is returned whole so the form can show every problem at once.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSubmitLeadInput checks the form payload. Phone must parse for region.
func ValidateSubmitLeadInput(input SubmitLeadInput) ValidationErrors {
	var out ValidationErrors

	if err := validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				out = append(out, ValidationError{Field: jsonField(fe.Field()), Message: tagMessage(fe)})
			}
		} else {
			out = append(out, ValidationError{Field: "body", Message: err.Error()})
		}
	}

	if strings.TrimSpace(input.Phone) != "" {
		if _, err := NormalizePhone(input.Phone, DefaultPhoneRegion); err != nil {
			out = append(out, ValidationError{Field: "phone", Message: "must be a valid phone number"})
		}
	}

	return out
}

// NormalizePhone formats phone as E.164.
func NormalizePhone(phone, region string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func jsonField(name string) string {
	return strings.ToLower(name)
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is invalid"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	}
	return "is invalid"
}
