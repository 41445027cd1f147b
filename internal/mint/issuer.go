package mint

import (
	"context"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/pda"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

// IssueParams describes the initial distribution of a mint. Payer is the
// mint authority.
type IssueParams struct {
	Payer               sol.PrivateKey
	Mint                sol.PublicKey
	Holder              sol.PublicKey
	Recipient           sol.PublicKey
	Amount              uint64
	RevokeMintAuthority bool
}

// Issuance is the outcome of Issue.
type Issuance struct {
	HolderAccount    sol.PublicKey
	RecipientAccount sol.PublicKey
	Signature        sol.Signature
}

// Issuer creates token accounts and mints supply.
type Issuer struct {
	submitter *solana.Submitter
	logger    *zap.Logger
}

// NewIssuer creates an issuer. A nil logger disables logging.
func NewIssuer(submitter *solana.Submitter, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{submitter: submitter, logger: logger}
}

// Issue creates the holder and recipient accounts idempotently, mints Amount
// to the holder and optionally fixes the supply, in one transaction.
func (i *Issuer) Issue(ctx context.Context, p IssueParams) (*Issuance, error) {
	if p.Amount == 0 {
		return nil, fmt.Errorf("issue amount must be positive")
	}
	payer := p.Payer.PublicKey()

	holderATA, _, err := pda.AssociatedTokenAddress(p.Holder, p.Mint, solana.Token2022ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive holder account: %w", err)
	}
	recipientATA, _, err := pda.AssociatedTokenAddress(p.Recipient, p.Mint, solana.Token2022ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive recipient account: %w", err)
	}

	ixs := []sol.Instruction{
		token2022.CreateAssociatedTokenAccount(payer, holderATA, p.Holder, p.Mint, solana.Token2022ProgramID, true),
		token2022.CreateAssociatedTokenAccount(payer, recipientATA, p.Recipient, p.Mint, solana.Token2022ProgramID, true),
		token2022.MintTo(solana.Token2022ProgramID, p.Mint, holderATA, payer, p.Amount),
	}
	if p.RevokeMintAuthority {
		ixs = append(ixs, token2022.SetAuthority(solana.Token2022ProgramID, p.Mint, payer, token2022.AuthorityMintTokens, nil))
	}

	sig, err := i.submitter.Submit(ctx, "issue", payer, ixs, p.Payer)
	if err != nil {
		return nil, fmt.Errorf("issue %s: %w", p.Mint, err)
	}

	i.logger.Info("supply issued",
		zap.String("mint", p.Mint.String()),
		zap.String("holder_account", holderATA.String()),
		zap.String("recipient_account", recipientATA.String()),
		zap.Uint64("amount", p.Amount),
		zap.Bool("authority_revoked", p.RevokeMintAuthority),
	)
	return &Issuance{
		HolderAccount:    holderATA,
		RecipientAccount: recipientATA,
		Signature:        sig,
	}, nil
}
