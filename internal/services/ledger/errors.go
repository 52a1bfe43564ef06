package ledger

import "errors"

var (
	// ErrInsufficientBalance means the available balance cannot cover the amount
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount means the amount fails validation (zero, negative, or
	// the wrong sign for the entry kind)
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidKind means the entry kind cannot be written through Credit
	ErrInvalidKind = errors.New("invalid ledger entry kind")

	// ErrAccountSuspended means the user cannot earn task rewards right now
	ErrAccountSuspended = errors.New("account suspended")

	// ErrInvalidReservationState means the reservation is not in a state that
	// permits the requested operation
	ErrInvalidReservationState = errors.New("invalid reservation state")
)
