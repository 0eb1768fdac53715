package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidLife      = errors.New("useful life must be at least 1 month")
	ErrLifeTooLong      = errors.New("useful life exceeds 1200 months")
)

// InvalidInputError reports a rejected field value. Err is one of the
// sentinel errors of this package.
type InvalidInputError struct {
	Field string
	Err   error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// Invalid wraps err as an InvalidInputError for field.
func Invalid(field string, err error) error {
	return &InvalidInputError{Field: field, Err: err}
}

// ClassificationUnavailableError means the external classifier could not
// produce a usable answer. Callers decide whether to retry or fall back to
// manual classification.
type ClassificationUnavailableError struct {
	Err error
}

func (e *ClassificationUnavailableError) Error() string {
	return fmt.Sprintf("classification unavailable: %v", e.Err)
}

func (e *ClassificationUnavailableError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown id. Resource defaults to "transaction".
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	resource := e.Resource
	if resource == "" {
		resource = "transaction"
	}
	return fmt.Sprintf("%s %s not found", resource, e.ID)
}

// ConsistencyError signals a capital transaction stored without its asset
// (or an asset without its transaction). It is never recoverable.
type ConsistencyError struct {
	TransactionID string
	Detail        string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("ledger consistency violation for transaction %s: %s", e.TransactionID, e.Detail)
}

func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsClassificationUnavailable(err error) bool {
	var target *ClassificationUnavailableError
	return errors.As(err, &target)
}

func IsConsistency(err error) bool {
	var target *ConsistencyError
	return errors.As(err, &target)
}
