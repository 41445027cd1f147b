// Package mint composes the single atomic transaction that creates an
// extension-augmented Token-2022 mint, and issues its supply.
package mint

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

// Metadata is the on-mint token metadata.
type Metadata struct {
	Name       string
	Symbol     string
	URI        string
	Additional []token2022.MetadataField
}

// ComposeParams describes the mint to create.
type ComposeParams struct {
	Extensions      token2022.ExtensionSet
	Metadata        Metadata
	Decimals        uint8
	MintAuthority   sol.PublicKey
	FreezeAuthority *sol.PublicKey
	HookProgram     sol.PublicKey
	Layout          token2022.Layout
}

// TokenMetadata returns the metadata entry the mint will carry, or nil when
// the mint does not host metadata.
func (p ComposeParams) TokenMetadata(mint sol.PublicKey) *token2022.TokenMetadata {
	if !p.Extensions.Contains(token2022.ExtensionMetadataPointer) {
		return nil
	}
	return &token2022.TokenMetadata{
		UpdateAuthority:    p.MintAuthority,
		Mint:               mint,
		Name:               p.Metadata.Name,
		Symbol:             p.Metadata.Symbol,
		URI:                p.Metadata.URI,
		AdditionalMetadata: p.Metadata.Additional,
	}
}

// PlanLayout computes the layout for params with the given rent.
func PlanLayout(params ComposeParams, mint sol.PublicKey, rent token2022.RentParams) (token2022.Layout, error) {
	if err := token2022.ValidateAdditionalMetadata(params.Metadata.Additional); err != nil {
		return token2022.Layout{}, err
	}
	packed := 0
	if md := params.TokenMetadata(mint); md != nil {
		packed = md.PackedLen()
	}
	return token2022.ComputeLayout(params.Extensions, packed, rent)
}

// Composer builds and submits mint creation bundles.
type Composer struct {
	submitter *solana.Submitter
	rent      token2022.RentParams
	logger    *zap.Logger
}

// NewComposer creates a composer. A nil logger disables logging.
func NewComposer(submitter *solana.Submitter, rent token2022.RentParams, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{submitter: submitter, rent: rent, logger: logger}
}

// Compose returns the creation bundle in its mandatory order: create
// account, extension initializers in declared order, initialize mint, token
// metadata initialize and one update per additional field.
func (c *Composer) Compose(payer, mint sol.PublicKey, params ComposeParams) ([]sol.Instruction, error) {
	if params.MintAuthority.IsZero() {
		return nil, fmt.Errorf("mint authority is required")
	}
	if params.Extensions.Contains(token2022.ExtensionTransferHook) && params.HookProgram.IsZero() {
		return nil, fmt.Errorf("transfer hook extension requires a hook program")
	}

	if err := token2022.ValidateAdditionalMetadata(params.Metadata.Additional); err != nil {
		return nil, err
	}
	want, err := PlanLayout(params, mint, c.rent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLayoutMismatch, err)
	}
	if want != params.Layout {
		return nil, fmt.Errorf("%w: planned %+v, expected %+v", domain.ErrLayoutMismatch, params.Layout, want)
	}

	ixs := []sol.Instruction{
		system.NewCreateAccountInstruction(
			params.Layout.RentLamports,
			uint64(params.Layout.MintSpace),
			solana.Token2022ProgramID,
			payer,
			mint,
		).Build(),
	}
	for _, ext := range params.Extensions {
		ix, err := extensionInstruction(ext, mint, params)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, ix)
	}
	ixs = append(ixs, token2022.InitializeMint(solana.Token2022ProgramID, mint, params.Decimals, params.MintAuthority, params.FreezeAuthority))

	if md := params.TokenMetadata(mint); md != nil {
		ixs = append(ixs, token2022.InitializeTokenMetadata(
			solana.Token2022ProgramID, mint, md.UpdateAuthority, mint, params.MintAuthority,
			md.Name, md.Symbol, md.URI,
		))
		for _, f := range md.AdditionalMetadata {
			ixs = append(ixs, token2022.UpdateTokenMetadataField(
				solana.Token2022ProgramID, mint, md.UpdateAuthority, token2022.FieldFor(f.Key), f.Value,
			))
		}
	}

	if err := ValidateOrder(ixs); err != nil {
		return nil, err
	}
	return ixs, nil
}

func extensionInstruction(ext token2022.ExtensionType, mint sol.PublicKey, params ComposeParams) (sol.Instruction, error) {
	authority := params.MintAuthority
	switch ext {
	case token2022.ExtensionMetadataPointer:
		return token2022.InitializeMetadataPointer(mint, authority, mint), nil
	case token2022.ExtensionTransferHook:
		return token2022.InitializeTransferHook(mint, authority, params.HookProgram), nil
	case token2022.ExtensionMintCloseAuthority:
		return token2022.InitializeMintCloseAuthority(mint, &authority), nil
	case token2022.ExtensionPermanentDelegate:
		return token2022.InitializePermanentDelegate(mint, authority), nil
	case token2022.ExtensionNonTransferable:
		return token2022.InitializeNonTransferable(mint), nil
	default:
		return nil, fmt.Errorf("%w: no initializer for %s", token2022.ErrUnsupportedExtension, ext)
	}
}

// Create composes the bundle and submits it as one transaction signed by
// the payer and the mint keypair.
func (c *Composer) Create(ctx context.Context, payer, mint sol.PrivateKey, params ComposeParams) (sol.Signature, error) {
	ixs, err := c.Compose(payer.PublicKey(), mint.PublicKey(), params)
	if err != nil {
		return sol.Signature{}, err
	}

	c.logger.Info("creating mint",
		zap.String("mint", mint.PublicKey().String()),
		zap.Strings("extensions", params.Extensions.Names()),
		zap.Int("space", params.Layout.MintSpace),
		zap.Int("account_length", params.Layout.AccountLength),
		zap.Uint64("rent_lamports", params.Layout.RentLamports),
	)

	sig, err := c.submitter.Submit(ctx, "mint", payer.PublicKey(), ixs, payer, mint)
	if err != nil {
		if solana.IsInsufficientFundsForRent(err) {
			return sol.Signature{}, fmt.Errorf("%w: %w", domain.ErrLayoutMismatch, err)
		}
		return sol.Signature{}, fmt.Errorf("create mint %s: %w", mint.PublicKey(), err)
	}
	return sig, nil
}

type phase int

const (
	phaseCreate phase = iota
	phaseExtension
	phaseInitMint
	phaseMetadataInit
	phaseMetadataUpdate
)

func (p phase) String() string {
	switch p {
	case phaseCreate:
		return "create-account"
	case phaseExtension:
		return "extension-init"
	case phaseInitMint:
		return "initialize-mint"
	case phaseMetadataInit:
		return "metadata-initialize"
	default:
		return "metadata-update"
	}
}

var errUnknownInstruction = errors.New("instruction does not belong in a mint bundle")

// ValidateOrder checks that a bundle is create-account, extension
// initializers, initialize-mint, then token metadata.
func ValidateOrder(ixs []sol.Instruction) error {
	if len(ixs) == 0 {
		return fmt.Errorf("%w: empty bundle", domain.ErrOrderingViolation)
	}
	last := phase(-1)
	counts := map[phase]int{}
	for i, ix := range ixs {
		p, err := classify(ix)
		if err != nil {
			return fmt.Errorf("%w: instruction %d: %w", domain.ErrOrderingViolation, i, err)
		}
		if p < last {
			return fmt.Errorf("%w: instruction %d is %s after %s", domain.ErrOrderingViolation, i, p, last)
		}
		if p == phaseMetadataUpdate && counts[phaseMetadataInit] == 0 {
			return fmt.Errorf("%w: instruction %d updates metadata before it is initialized", domain.ErrOrderingViolation, i)
		}
		counts[p]++
		last = p
	}
	switch {
	case counts[phaseCreate] != 1:
		return fmt.Errorf("%w: bundle needs exactly one create-account first", domain.ErrOrderingViolation)
	case counts[phaseInitMint] != 1:
		return fmt.Errorf("%w: bundle needs exactly one initialize-mint", domain.ErrOrderingViolation)
	case counts[phaseMetadataInit] > 1:
		return fmt.Errorf("%w: metadata initialized twice", domain.ErrOrderingViolation)
	}
	return nil
}

func classify(ix sol.Instruction) (phase, error) {
	data, err := ix.Data()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, errUnknownInstruction
	}
	switch ix.ProgramID() {
	case solana.SystemProgramID:
		if len(data) >= 4 && data[0] == 0 && bytes.Equal(data[1:4], []byte{0, 0, 0}) {
			return phaseCreate, nil
		}
	case solana.Token2022ProgramID:
		if len(data) >= 8 {
			switch {
			case bytes.Equal(data[:8], token2022.MetadataInitializeDiscriminator[:]):
				return phaseMetadataInit, nil
			case bytes.Equal(data[:8], token2022.MetadataUpdateFieldDiscriminator[:]):
				return phaseMetadataUpdate, nil
			}
		}
		switch data[0] {
		case token2022.InstructionInitializeMint:
			return phaseInitMint, nil
		case token2022.InstructionTransferHookExtension,
			token2022.InstructionMetadataPointerExtension,
			token2022.InstructionInitializeMintCloseAuthority,
			token2022.InstructionInitializePermanentDelegate,
			token2022.InstructionInitializeNonTransferableMint:
			return phaseExtension, nil
		}
	}
	return 0, errUnknownInstruction
}
