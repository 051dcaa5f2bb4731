package domain

import "errors"

var (
	ErrStoreNotFound       = errors.New("store not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrItemSoldOut         = errors.New("item sold out")
	ErrInvalidItemPrice    = errors.New("item price must be positive with at most two decimal places")
	ErrInvalidItemQuantity = errors.New("item quantity must not be negative")
	ErrInvalidCursor       = errors.New("invalid cursor")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")

	// ErrTaskRejected marks a task the receiving endpoint refused; redelivery will not help.
	ErrTaskRejected = errors.New("task rejected")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Message string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}
