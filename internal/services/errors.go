package services

import (
	"errors"

	"github.com/sjperalta/society-ledger/internal/repository"
)

// Error kinds. Every error returned by the engines unwraps to exactly one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("state conflict")
	ErrPersistence   = errors.New("persistence failure")
)

// Error is the typed error returned by the engines. Kind classifies it,
// Code identifies it for callers and Details carries values a caller can
// show to the user, such as the computed loan ceiling.
type Error struct {
	Kind    error
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Is matches another *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy of e carrying the given details
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap returns a copy of e caused by err
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func newError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Not found
var (
	ErrMemberNotFound         = newError(ErrNotFound, "MEMBER_NOT_FOUND", "member not found")
	ErrEntryNotFound          = newError(ErrNotFound, "ENTRY_NOT_FOUND", "ledger entry not found")
	ErrLoanNotFound           = newError(ErrNotFound, "LOAN_NOT_FOUND", "loan not found")
	ErrMaturityRecordNotFound = newError(ErrNotFound, "MATURITY_RECORD_NOT_FOUND", "maturity record not found")
)

// Validation
var (
	ErrInvalidAmount       = newError(ErrValidation, "INVALID_AMOUNT", "amount is not valid")
	ErrInvalidEntryKind    = newError(ErrValidation, "INVALID_ENTRY_KIND", "entry kind is not supported")
	ErrInvalidMode         = newError(ErrValidation, "INVALID_MODE", "payment mode is not supported")
	ErrInvalidInput        = newError(ErrValidation, "INVALID_INPUT", "request is not valid")
	ErrLoanReassignment    = newError(ErrValidation, "LOAN_REASSIGNMENT", "an installment cannot be moved to another loan; delete and re-enter it")
	ErrEntryNotOwned       = newError(ErrValidation, "ENTRY_MEMBER_MISMATCH", "ledger entry does not belong to this member")
	ErrNoActiveLoan        = newError(ErrValidation, "NO_ACTIVE_LOAN", "no active loan found for this member")
	ErrMultipleActiveLoans = newError(ErrValidation, "MULTIPLE_ACTIVE_LOANS", "member has more than one active loan; loan_id is required")
	ErrLoanExceedsCeiling  = newError(ErrValidation, "LOAN_EXCEEDS_CEILING", "loan amount exceeds the maximum allowed for this member")
	ErrActiveLoanExists    = newError(ErrValidation, "ACTIVE_LOAN_EXISTS", "member already has an active loan")
	ErrLoanBelowMinimum    = newError(ErrValidation, "LOAN_BELOW_MINIMUM", "loan amount is below the minimum")
)

// State conflicts
var (
	ErrLoanClosed              = newError(ErrStateConflict, "LOAN_CLOSED", "loan is closed")
	ErrEntryLinkedToClosedLoan = newError(ErrStateConflict, "ENTRY_LINKED_TO_CLOSED_LOAN", "entry belongs to a closed loan and cannot be changed")
	ErrEntryIsMaturityPayout   = newError(ErrStateConflict, "ENTRY_IS_MATURITY_PAYOUT", "entry is the payout of a claimed maturity and cannot be changed")
	ErrPaymentBelowInterest    = newError(ErrStateConflict, "PAYMENT_BELOW_INTEREST", "payment does not cover the interest due")
	ErrMaturityNotMatured      = newError(ErrStateConflict, "MATURITY_NOT_MATURED", "maturity record has not matured")
	ErrMaturityAlreadyClaimed  = newError(ErrStateConflict, "MATURITY_ALREADY_CLAIMED", "maturity has already been claimed")
	ErrDuplicateMemberCode     = newError(ErrStateConflict, "DUPLICATE_MEMBER_CODE", "member code already exists")
)

// persistenceError wraps a driver or transaction failure. Typed errors pass
// through unchanged so a rollback keeps the original classification.
func persistenceError(action string, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{
		Kind:    ErrPersistence,
		Code:    "PERSISTENCE_ERROR",
		Message: "failed to " + action,
		Err:     err,
	}
}

// lookupError maps a missing row to notFound and anything else to a persistence error
func lookupError(err error, notFound *Error, action string) error {
	if repository.IsNotFound(err) {
		return notFound
	}
	return persistenceError(action, err)
}
