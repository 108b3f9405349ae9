package apperrors

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable category of a domain error.
type Kind string

const (
	KindInvalidAmount     Kind = "INVALID_AMOUNT"
	KindCurrencyMismatch  Kind = "CURRENCY_MISMATCH"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindInvalidOperation  Kind = "INVALID_OPERATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindFormat            Kind = "FORMAT_ERROR"
	KindArithmetic        Kind = "ARITHMETIC_ERROR"
)

// Error is a domain error raised synchronously to the caller. Two errors
// match under errors.Is when their kinds are equal, so the sentinels below
// can be used to classify any error of the same kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrInvalidAmount is returned for a missing, zero or negative amount.
	ErrInvalidAmount = &Error{Kind: KindInvalidAmount, Message: "amount must be positive"}

	// ErrCurrencyMismatch is returned when money in two different currencies
	// is combined or compared.
	ErrCurrencyMismatch = &Error{Kind: KindCurrencyMismatch, Message: "currency mismatch"}

	// ErrInsufficientFunds is returned when a debit would leave a negative balance.
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}

	// ErrInvalidOperation covers business-rule violations such as self-transfer.
	ErrInvalidOperation = &Error{Kind: KindInvalidOperation, Message: "invalid operation"}

	// ErrNotFound indicates that a wallet or owner does not exist.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}

	// ErrFormat is returned for unparsable decimals or malformed currency codes.
	ErrFormat = &Error{Kind: KindFormat, Message: "invalid format"}

	// ErrArithmetic is returned for division by zero.
	ErrArithmetic = &Error{Kind: KindArithmetic, Message: "arithmetic error"}
)

// New builds a domain error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a domain error of the given kind around a lower-level cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first domain error in err's chain, or an
// empty Kind when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
