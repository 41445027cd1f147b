// Package identity obtains the operating signer and makes sure it can pay
// for the workflow.
package identity

import (
	"context"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/keys"
	"transfer-hook-lab/internal/observability"
	"transfer-hook-lab/internal/solana"
)

// Config holds the funding policy.
type Config struct {
	// ThresholdLamports is the minimum operating balance.
	ThresholdLamports uint64
	// AirdropLamports is requested from the faucet when below threshold.
	AirdropLamports uint64
	// Commitment is used for balance reads and airdrop confirmation.
	Commitment solana.Commitment
}

// DefaultConfig requests 2 SOL whenever the balance is under 1 SOL.
func DefaultConfig() Config {
	return Config{
		ThresholdLamports: solana.LamportsPerSOL,
		AirdropLamports:   2 * solana.LamportsPerSOL,
		Commitment:        solana.CommitmentConfirmed,
	}
}

// Identity is a resolved and funded signer.
type Identity struct {
	Key     sol.PrivateKey
	Origin  keys.Origin
	Balance uint64
	// Airdropped is set when a faucet request was needed.
	Airdropped bool
}

// PublicKey returns the signer address.
func (i *Identity) PublicKey() sol.PublicKey {
	return i.Key.PublicKey()
}

// Bootstrapper resolves the signer and tops up its balance.
type Bootstrapper struct {
	client    solana.RPCClient
	confirmer solana.Confirmer
	cfg       Config
	logger    *zap.Logger
}

// New creates a Bootstrapper.
func New(client solana.RPCClient, confirmer solana.Confirmer, cfg Config, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Commitment == "" {
		cfg.Commitment = solana.CommitmentConfirmed
	}
	return &Bootstrapper{
		client:    client,
		confirmer: confirmer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Obtain resolves the signer from src and ensures it holds at least the
// threshold balance. A key is persisted, if at all, before any funding
// request is made.
func (b *Bootstrapper) Obtain(ctx context.Context, src keys.Source) (*Identity, error) {
	key, origin, err := keys.Resolve(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	b.logger.Info("identity resolved",
		zap.Stringer("pubkey", key.PublicKey()),
		zap.String("origin", string(origin)),
	)

	balance, airdropped, err := b.EnsureFunded(ctx, key.PublicKey())
	if err != nil {
		return nil, err
	}
	return &Identity{
		Key:        key,
		Origin:     origin,
		Balance:    balance,
		Airdropped: airdropped,
	}, nil
}

// EnsureFunded requests one airdrop when the balance is under the
// threshold. Above the threshold it only reads the balance.
func (b *Bootstrapper) EnsureFunded(ctx context.Context, account sol.PublicKey) (uint64, bool, error) {
	balance, err := b.client.GetBalance(ctx, account, b.cfg.Commitment)
	if err != nil {
		return 0, false, fmt.Errorf("get balance: %w", err)
	}
	if balance >= b.cfg.ThresholdLamports {
		b.logger.Debug("identity funded",
			zap.Stringer("pubkey", account),
			zap.Uint64("lamports", balance),
		)
		return balance, false, nil
	}

	b.logger.Info("requesting airdrop",
		zap.Stringer("pubkey", account),
		zap.Uint64("balance", balance),
		zap.Uint64("lamports", b.cfg.AirdropLamports),
	)
	sig, err := b.client.RequestAirdrop(ctx, account, b.cfg.AirdropLamports, b.cfg.Commitment)
	if err != nil {
		observability.RecordAirdrop("error")
		return balance, false, fmt.Errorf("%w: airdrop request: %w", domain.ErrFundingUnavailable, err)
	}
	if err := b.confirmer.Confirm(ctx, sig, b.cfg.Commitment); err != nil {
		observability.RecordAirdrop("error")
		return balance, true, fmt.Errorf("%w: airdrop confirmation: %w", domain.ErrFundingUnavailable, err)
	}

	balance, err = b.client.GetBalance(ctx, account, b.cfg.Commitment)
	if err != nil {
		return 0, true, fmt.Errorf("get balance after airdrop: %w", err)
	}
	if balance < b.cfg.ThresholdLamports {
		observability.RecordAirdrop("insufficient")
		return balance, true, fmt.Errorf("%w: balance %d below threshold %d after airdrop",
			domain.ErrFundingUnavailable, balance, b.cfg.ThresholdLamports)
	}
	observability.RecordAirdrop("ok")
	b.logger.Info("airdrop confirmed",
		zap.Stringer("pubkey", account),
		zap.Stringer("signature", sig),
		zap.Uint64("balance", balance),
	)
	return balance, true, nil
}
