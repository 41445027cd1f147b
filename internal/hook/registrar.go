// Package hook registers a mint with the companion transfer-hook program.
package hook

import (
	"context"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/extrameta"
	"transfer-hook-lab/internal/hookprog"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

// Registration is the outcome of Register.
type Registration struct {
	ExtraAccountMetaList  sol.PublicKey
	CompanionMint         sol.PublicKey
	CompanionAuthority    sol.PublicKey
	CompanionTokenAccount sol.PublicKey
	Signature             sol.Signature
}

// Registrar initializes extra-account-meta lists.
type Registrar struct {
	submitter *solana.Submitter
	logger    *zap.Logger
}

// NewRegistrar creates a registrar. A nil logger disables logging.
func NewRegistrar(submitter *solana.Submitter, logger *zap.Logger) *Registrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{submitter: submitter, logger: logger}
}

// Register creates the mint's extra-account-meta list, the companion mint
// and the companion token account owned by the program's authority PDA, in
// one transaction. An existing list fails with ErrDuplicateRegistration
// before anything is sent.
func (r *Registrar) Register(ctx context.Context, payer sol.PrivateKey, mint, hookProgram sol.PublicKey, companionMint sol.PrivateKey) (*Registration, error) {
	accounts, err := hookprog.DeriveAccounts(hookProgram, payer.PublicKey(), mint, companionMint.PublicKey())
	if err != nil {
		return nil, err
	}

	existing, err := r.submitter.Client().GetAccountInfo(ctx, accounts.ExtraAccountMetaList, r.submitter.Commitment())
	if err != nil {
		return nil, fmt.Errorf("read extra account meta list: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: list %s for mint %s already exists", domain.ErrDuplicateRegistration, accounts.ExtraAccountMetaList, mint)
	}

	ixs := []sol.Instruction{
		hookprog.InitializeExtraAccountMetaList(hookProgram, accounts),
		token2022.CreateAssociatedTokenAccount(
			payer.PublicKey(),
			accounts.CompanionTokenAccount,
			accounts.CompanionAuthority,
			accounts.CompanionMint,
			solana.TokenProgramID,
			true,
		),
	}

	sig, err := r.submitter.Submit(ctx, "register", payer.PublicKey(), ixs, payer, companionMint)
	if err != nil {
		if solana.IsRejectedFor(err, solana.ReasonAccountInUse) {
			return nil, fmt.Errorf("%w: %w", domain.ErrDuplicateRegistration, err)
		}
		return nil, fmt.Errorf("register %s: %w", mint, err)
	}

	r.logger.Info("hook registered",
		zap.String("mint", mint.String()),
		zap.String("extra_account_meta_list", accounts.ExtraAccountMetaList.String()),
		zap.String("companion_mint", accounts.CompanionMint.String()),
		zap.String("companion_token_account", accounts.CompanionTokenAccount.String()),
	)
	return &Registration{
		ExtraAccountMetaList:  accounts.ExtraAccountMetaList,
		CompanionMint:         accounts.CompanionMint,
		CompanionAuthority:    accounts.CompanionAuthority,
		CompanionTokenAccount: accounts.CompanionTokenAccount,
		Signature:             sig,
	}, nil
}

// Lookup reads a mint's registered list and returns its metas. A missing
// list returns nil metas and no error.
func Lookup(ctx context.Context, client solana.RPCClient, commitment solana.Commitment, mint, hookProgram sol.PublicKey) ([]extrameta.ExtraAccountMeta, error) {
	accounts, err := hookprog.DeriveAccounts(hookProgram, sol.PublicKey{}, mint, sol.PublicKey{})
	if err != nil {
		return nil, err
	}
	info, err := client.GetAccountInfo(ctx, accounts.ExtraAccountMetaList, commitment)
	if err != nil {
		return nil, fmt.Errorf("read extra account meta list: %w", err)
	}
	if info == nil {
		return nil, nil
	}
	if info.Owner != hookProgram {
		return nil, fmt.Errorf("%w: list %s owned by %s", extrameta.ErrInvalidList, accounts.ExtraAccountMetaList, info.Owner)
	}
	return extrameta.Unpack(info.Data)
}

// CompanionMint returns the companion mint recorded in a registered list.
func CompanionMint(metas []extrameta.ExtraAccountMeta) (sol.PublicKey, error) {
	if len(metas) != hookprog.CompanionMetaCount {
		return sol.PublicKey{}, fmt.Errorf("%w: %d metas, want %d", extrameta.ErrInvalidList, len(metas), hookprog.CompanionMetaCount)
	}
	m := metas[hookprog.MetaCompanionMint]
	if m.Discriminator != extrameta.DiscriminatorPubkey {
		return sol.PublicKey{}, fmt.Errorf("%w: companion mint is not a fixed address", extrameta.ErrInvalidList)
	}
	return sol.PublicKeyFromBytes(m.AddressConfig[:]), nil
}
