package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypePrecondition ErrorType = "PRECONDITION_FAILED"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidValue     ErrorCode = "INVALID_VALUE"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidCondition ErrorCode = "INVALID_CONDITION"
	ErrCodeInvalidDays      ErrorCode = "INVALID_DAYS"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"

	ErrCodeItemNotFound           ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeUserNotFound           ErrorCode = "USER_NOT_FOUND"
	ErrCodeCheckoutNotFound       ErrorCode = "CHECKOUT_NOT_FOUND"
	ErrCodeReportNotFound         ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeItemNotAvailable       ErrorCode = "ITEM_NOT_AVAILABLE"
	ErrCodeNoActiveCheckout       ErrorCode = "NO_ACTIVE_CHECKOUT"
	ErrCodeStatusRequiresCheckout ErrorCode = "STATUS_REQUIRES_CHECKOUT"
	ErrCodeEmailTaken             ErrorCode = "EMAIL_TAKEN"
	ErrCodeDuplicateItem          ErrorCode = "DUPLICATE_ITEM"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInsufficientRole   ErrorCode = "INSUFFICIENT_ROLE"

	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so that sentinel values keep working after
// being copied or wrapped.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy of e carrying cause. Sentinels are shared, so they
// are never mutated in place.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewPreconditionError is an expected business outcome: the entity exists but
// is not in a state that allows the operation.
func NewPreconditionError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypePrecondition,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewPersistenceError wraps a backend I/O failure. Callers decide whether to retry.
func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodePersistenceFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrItemNotFound           = NewNotFoundError("Item not found", ErrCodeItemNotFound)
	ErrUserNotFound           = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrCheckoutNotFound       = NewNotFoundError("Checkout record not found", ErrCodeCheckoutNotFound)
	ErrReportNotFound         = NewNotFoundError("Report not found", ErrCodeReportNotFound)
	ErrItemNotAvailable       = NewPreconditionError("Item is not available for checkout", ErrCodeItemNotAvailable)
	ErrNoActiveCheckout       = NewPreconditionError("No active checkout found for this item", ErrCodeNoActiveCheckout)
	ErrStatusRequiresCheckout = NewPreconditionError("Status 'Checked Out' can only be set by checking the item out", ErrCodeStatusRequiresCheckout)
	ErrEmailTaken             = NewConflictError("Email is already registered", ErrCodeEmailTaken)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrInsufficientRole   = NewForbiddenError("Insufficient role for this operation", ErrCodeInsufficientRole)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsPersistenceFailure reports whether err came from the storage backend.
func IsPersistenceFailure(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == ErrCodePersistenceFailure
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
