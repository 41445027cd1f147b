package solana

import (
	sol "github.com/gagliardetto/solana-go"
)

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      sol.PublicKey
	Data       []byte // decoded from base64
	Executable bool
	RentEpoch  uint64
}

// Blockhash is a recent blockhash and the height after which it expires.
type Blockhash struct {
	Hash                 sol.Hash
	LastValidBlockHeight uint64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil once finalized
	Err                interface{}
	ConfirmationStatus Commitment
}

// Reached reports whether the status is at or past the target commitment.
func (s *SignatureStatus) Reached(target Commitment) bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus.Rank() >= target.Rank()
}

// SendOptions configures sendTransaction.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
	MaxRetries          *uint
}
