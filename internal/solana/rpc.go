package solana

import (
	"context"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
)

// Commitment is the ledger confirmation level a read or wait targets.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// ParseCommitment validates a commitment name.
func ParseCommitment(s string) (Commitment, error) {
	switch c := Commitment(s); c {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return c, nil
	default:
		return "", fmt.Errorf("unknown commitment %q", s)
	}
}

// Rank orders commitments: processed < confirmed < finalized.
func (c Commitment) Rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// RPCClient defines the Solana RPC HTTP interface used by the workflow.
type RPCClient interface {
	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, account sol.PublicKey, commitment Commitment) (uint64, error)

	// RequestAirdrop asks the cluster faucet for lamports.
	RequestAirdrop(ctx context.Context, account sol.PublicKey, lamports uint64, commitment Commitment) (sol.Signature, error)

	// GetLatestBlockhash returns a recent blockhash for transaction building.
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (*Blockhash, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for dataLen bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64, commitment Commitment) (uint64, error)

	// GetAccountInfo returns account state, or nil if the account does not exist.
	GetAccountInfo(ctx context.Context, account sol.PublicKey, commitment Commitment) (*AccountInfo, error)

	// SendTransaction submits a signed transaction.
	SendTransaction(ctx context.Context, tx *sol.Transaction, opts SendOptions) (sol.Signature, error)

	// GetSignatureStatuses returns one status per signature, nil when unknown.
	GetSignatureStatuses(ctx context.Context, signatures ...sol.Signature) ([]*SignatureStatus, error)
}
