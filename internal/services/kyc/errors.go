package kyc

import "errors"

var (
	// ErrInvalidState means the operation is not valid from the user's
	// current KYC status
	ErrInvalidState = errors.New("invalid kyc state transition")

	// ErrNoDocuments means a submission was attempted without document refs
	ErrNoDocuments = errors.New("at least one document reference is required")

	// ErrOrderNotFound means the payment order does not exist
	ErrOrderNotFound = errors.New("payment order not found")

	// ErrWrongPurpose means the payment order does not belong to the KYC flow
	ErrWrongPurpose = errors.New("payment order has wrong purpose")
)
