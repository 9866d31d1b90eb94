package validation

import (
	"fmt"
	"net/mail"
	"strings"

	errors "github.com/frahmantamala/equipment-tracker/internal"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := &FieldValidator{
		FieldName: name,
		Value:     value,
	}
	v.fields = append(v.fields, fv)
	return fv
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		missing := false
		switch v := value.(type) {
		case string:
			missing = strings.TrimSpace(v) == ""
		case *string:
			missing = v == nil || strings.TrimSpace(*v) == ""
		case nil:
			missing = true
		}
		if missing {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinFloat(min float64, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case *float64:
			if v == nil {
				return nil
			}
			f = *v
		default:
			return nil
		}
		if f < min {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be at least %v", fv.FieldName, min), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinInt(min int, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(int); ok && v < min {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be at least %d", fv.FieldName, min), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && len(v) < min {
			message := fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min)
			return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := stringValue(value); ok && len(v) > max {
			message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
			return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

// OneOf accepts empty values; combine with Required when the field is mandatory.
func (fv *FieldValidator) OneOf(allowed []string, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := stringValue(value)
		if !ok || v == "" {
			return nil
		}
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		message := fmt.Sprintf("%s must be one of: %s", fv.FieldName, strings.Join(allowed, ", "))
		return errors.NewValidationFieldError(fv.FieldName, message, code)
	})
	return fv
}

func (fv *FieldValidator) Email() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := stringValue(value)
		if !ok || v == "" {
			return nil
		}
		if addr, err := mail.ParseAddress(v); err != nil || addr.Address != v {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be a valid email address", fv.FieldName), errors.ErrCodeInvalidEmail)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			err := validator(field.Value)
			if err == nil {
				continue
			}
			if details, ok := err.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
				continue
			}
			validationErrors = append(validationErrors, errors.ValidationError{
				Field:   field.FieldName,
				Message: err.Message,
				Code:    string(err.Code),
			})
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}
