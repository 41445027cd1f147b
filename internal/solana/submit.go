package solana

import (
	"context"
	"fmt"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/observability"
)

// Submitter builds, signs, sends and confirms transactions.
type Submitter struct {
	client     RPCClient
	confirmer  Confirmer
	commitment Commitment
	logger     *zap.Logger
}

// NewSubmitter creates a submitter. A nil logger disables logging.
func NewSubmitter(client RPCClient, confirmer Confirmer, commitment Commitment, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		client:     client,
		confirmer:  confirmer,
		commitment: commitment,
		logger:     logger,
	}
}

// Client returns the RPC client used for submission.
func (s *Submitter) Client() RPCClient {
	return s.client
}

// Commitment returns the commitment transactions are confirmed at.
func (s *Submitter) Commitment() Commitment {
	return s.commitment
}

// Submit sends instructions as one transaction paid by payer. Every key
// required as a signer must be present in signers.
func (s *Submitter) Submit(ctx context.Context, label string, payer sol.PublicKey, instructions []sol.Instruction, signers ...sol.PrivateKey) (sol.Signature, error) {
	tx, err := s.Build(ctx, payer, instructions, signers...)
	if err != nil {
		return sol.Signature{}, fmt.Errorf("%s: %w", label, err)
	}

	start := time.Now()
	sig, err := s.client.SendTransaction(ctx, tx, SendOptions{PreflightCommitment: s.commitment})
	if err != nil {
		observability.RecordTransaction(err, 0)
		s.logger.Warn("transaction rejected",
			zap.String("label", label),
			zap.Error(err),
		)
		return sol.Signature{}, fmt.Errorf("%s: send: %w", label, err)
	}

	if err := s.confirmer.Confirm(ctx, sig, s.commitment); err != nil {
		observability.RecordTransaction(err, 0)
		return sig, fmt.Errorf("%s: %w", label, err)
	}
	observability.RecordTransaction(nil, time.Since(start).Seconds())

	s.logger.Info("transaction confirmed",
		zap.String("label", label),
		zap.Stringer("signature", sig),
		zap.String("commitment", string(s.commitment)),
	)
	return sig, nil
}

// Build assembles and signs a transaction against the latest blockhash.
func (s *Submitter) Build(ctx context.Context, payer sol.PublicKey, instructions []sol.Instruction, signers ...sol.PrivateKey) (*sol.Transaction, error) {
	bh, err := s.client.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return nil, fmt.Errorf("get blockhash: %w", err)
	}

	tx, err := sol.NewTransaction(instructions, bh.Hash, sol.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	keys := make(map[sol.PublicKey]sol.PrivateKey, len(signers))
	for _, k := range signers {
		keys[k.PublicKey()] = k
	}
	if _, err := tx.Sign(func(pub sol.PublicKey) *sol.PrivateKey {
		if k, ok := keys[pub]; ok {
			return &k
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}
