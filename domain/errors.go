package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", ErrNotFound)

	ErrDuplicateEmail          = errors.New("email already exists")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email address has not been verified")
	ErrCustomerMissing    = errors.New("no customer profile is linked to this account")
	ErrInvalidToken       = errors.New("invalid or expired verification token")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError reports missing or malformed input. Fields lists the
// offending field names so callers can surface them.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func NewMissingFieldsError(fields ...string) error {
	return &ValidationError{Fields: fields}
}

func NewValidationError(field, message string) error {
	return &ValidationError{Fields: []string{field}, Message: message}
}

// FromValidator converts validator errors into a ValidationError. Fields
// failing "required" are reported as missing; any other failed rule makes
// the whole input invalid. Errors of other types pass through unchanged.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fe.Field())
	}

	if len(invalid) == 0 {
		return NewMissingFieldsError(missing...)
	}

	return &ValidationError{
		Fields:  append(missing, invalid...),
		Message: "invalid fields: " + strings.Join(invalid, ", "),
	}
}

// StockError names the product whose stock could not cover the request.
type StockError struct {
	ProductID uint
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", e.ProductID, e.Requested)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
