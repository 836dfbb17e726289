package library

import (
	"errors"
	"fmt"
)

// Kind classifies a lending failure. Every Kind is recoverable.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyIssued
	KindReservedByOther
	KindAlreadyReserved
	KindAlreadyAvailable
	KindRoleForbidden
	KindOutstandingFine
	KindBorrowLimitReached
	KindDuplicateKey
	KindInvalidArgument
	KindInvalidCredentials
	KindNoPendingSettlement
	KindActiveLoans
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindNotFound:            "NotFound",
	KindAlreadyIssued:       "AlreadyIssued",
	KindReservedByOther:     "ReservedByOther",
	KindAlreadyReserved:     "AlreadyReserved",
	KindAlreadyAvailable:    "AlreadyAvailable",
	KindRoleForbidden:       "RoleForbidden",
	KindOutstandingFine:     "OutstandingFine",
	KindBorrowLimitReached:  "BorrowLimitReached",
	KindDuplicateKey:        "DuplicateKey",
	KindInvalidArgument:     "InvalidArgument",
	KindInvalidCredentials:  "InvalidCredentials",
	KindNoPendingSettlement: "NoPendingSettlement",
	KindActiveLoans:         "ActiveLoans",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the structured result of a rejected operation: a kind plus a
// message fit to show the user.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is reports whether target is an *Error of the same kind, so the sentinels
// below match any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAlreadyIssued       = &Error{Kind: KindAlreadyIssued}
	ErrReservedByOther     = &Error{Kind: KindReservedByOther}
	ErrAlreadyReserved     = &Error{Kind: KindAlreadyReserved}
	ErrAlreadyAvailable    = &Error{Kind: KindAlreadyAvailable}
	ErrRoleForbidden       = &Error{Kind: KindRoleForbidden}
	ErrOutstandingFine     = &Error{Kind: KindOutstandingFine}
	ErrBorrowLimitReached  = &Error{Kind: KindBorrowLimitReached}
	ErrDuplicateKey        = &Error{Kind: KindDuplicateKey}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials}
	ErrNoPendingSettlement = &Error{Kind: KindNoPendingSettlement}
	ErrActiveLoans         = &Error{Kind: KindActiveLoans}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or KindUnknown for errors that did
// not come from the lending core.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
