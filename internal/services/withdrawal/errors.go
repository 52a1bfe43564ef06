package withdrawal

import "errors"

var (
	// ErrNotVerified means the user has not completed identity verification
	ErrNotVerified = errors.New("user is not verified")

	// ErrAccountNotActive means the account is suspended or pending reactivation
	ErrAccountNotActive = errors.New("account is not active")

	// ErrBelowMinimum means the requested amount is under the payout floor
	ErrBelowMinimum = errors.New("amount is below the minimum withdrawal")

	// ErrInvalidState means the request is not in a state that allows the operation
	ErrInvalidState = errors.New("invalid withdrawal state transition")

	// ErrNotFound means the withdrawal request does not exist
	ErrNotFound = errors.New("withdrawal request not found")

	// ErrTransferPending means the gateway has not settled the transfer yet
	ErrTransferPending = errors.New("transfer is still pending")
)
