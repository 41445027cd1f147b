package domain

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the issuance workflow. Every one of them is fatal
// for the stage that produced it.
var (
	// ErrFundingUnavailable is returned when the signer cannot reach the
	// operating balance (faucet refused, confirmation failed, balance still low).
	ErrFundingUnavailable = errors.New("funding unavailable")

	// ErrUploadFailure is returned when the storage service rejects an upload.
	ErrUploadFailure = errors.New("upload failure")

	// ErrLayoutMismatch is returned when the allocated account size or rent
	// does not match the extension set and metadata being initialized.
	ErrLayoutMismatch = errors.New("layout mismatch")

	// ErrOrderingViolation is returned when mint instructions are not in
	// create, extensions, initialize-mint, metadata order.
	ErrOrderingViolation = errors.New("ordering violation")

	// ErrDuplicateRegistration is returned when the extra-account-meta list
	// for a mint already exists.
	ErrDuplicateRegistration = errors.New("duplicate registration")

	// ErrTransferRejected is returned when the ledger rejects a transfer or the
	// hook's extra accounts cannot be resolved.
	ErrTransferRejected = errors.New("transfer rejected")
)

// Kind returns a short stable name for the failure kind wrapped in err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFundingUnavailable):
		return "funding_unavailable"
	case errors.Is(err, ErrUploadFailure):
		return "upload_failure"
	case errors.Is(err, ErrLayoutMismatch):
		return "layout_mismatch"
	case errors.Is(err, ErrOrderingViolation):
		return "ordering_violation"
	case errors.Is(err, ErrDuplicateRegistration):
		return "duplicate_registration"
	case errors.Is(err, ErrTransferRejected):
		return "transfer_rejected"
	default:
		return "internal"
	}
}

// StageError attaches the failing stage and, once known, the mint address.
type StageError struct {
	Stage Stage
	Mint  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Mint == "" {
		return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s failed (mint %s): %v", e.Stage, e.Mint, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
