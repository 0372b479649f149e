package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidTransition
	KindValidation
	KindConflict
)

// DomainError is a failure the caller can act on, as opposed to an
// infrastructure error.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

var (
	ErrTableNotFound      = &DomainError{Kind: KindNotFound, Message: "table not found"}
	ErrSessionNotFound    = &DomainError{Kind: KindNotFound, Message: "session not found"}
	ErrOrderNotFound      = &DomainError{Kind: KindNotFound, Message: "order not found"}
	ErrRestaurantNotFound = &DomainError{Kind: KindNotFound, Message: "restaurant not found"}
	ErrInvoiceNotFound    = &DomainError{Kind: KindNotFound, Message: "invoice not found"}
	ErrItemNotFound       = &DomainError{Kind: KindNotFound, Message: "item not found"}
)

func invalidTransition(format string, args ...interface{}) error {
	return &DomainError{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) error {
	return &DomainError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...interface{}) error {
	return &DomainError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first DomainError in err's chain.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// lookupError turns gorm's not-found into the given sentinel and wraps anything else.
func lookupError(err error, notFound error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
