package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/hook"
	"transfer-hook-lab/internal/hookprog"
	"transfer-hook-lab/internal/keys"
	"transfer-hook-lab/internal/metadata"
	"transfer-hook-lab/internal/mint"
	"transfer-hook-lab/internal/observability"
	"transfer-hook-lab/internal/storage"
	"transfer-hook-lab/internal/token2022"
	"transfer-hook-lab/internal/transfer"
)

// IdentityOutput is the checkpoint of the identity stage.
type IdentityOutput struct {
	Pubkey     string      `json:"pubkey"`
	Origin     keys.Origin `json:"origin"`
	Balance    uint64      `json:"balance"`
	Airdropped bool        `json:"airdropped"`
	Recipient  string      `json:"recipient"`
}

// LayoutOutput is the checkpoint of the layout stage.
type LayoutOutput struct {
	Extensions           []string `json:"extensions"`
	PackedMetadataLength int      `json:"packed_metadata_length"`
	MintSpace            int      `json:"mint_space"`
	AccountLength        int      `json:"account_length"`
	RentLamports         uint64   `json:"rent_lamports"`
}

func (l *LayoutOutput) layout() token2022.Layout {
	return token2022.Layout{
		MintSpace:     l.MintSpace,
		AccountLength: l.AccountLength,
		RentLamports:  l.RentLamports,
	}
}

// MintOutput is the checkpoint of the mint stage.
type MintOutput struct {
	Mint      string `json:"mint"`
	Signature string `json:"signature"`
}

// IssueOutput is the checkpoint of the issue stage.
type IssueOutput struct {
	HolderAccount    string `json:"holder_account"`
	RecipientAccount string `json:"recipient_account"`
	Amount           uint64 `json:"amount"`
	Signature        string `json:"signature"`
}

// RegisterOutput is the checkpoint of the register stage.
type RegisterOutput struct {
	ExtraAccountMetaList  string `json:"extra_account_meta_list"`
	CompanionMint         string `json:"companion_mint"`
	CompanionAuthority    string `json:"companion_authority"`
	CompanionTokenAccount string `json:"companion_token_account"`
	Signature             string `json:"signature"`
}

// TransferOutput is the checkpoint of the transfer stage.
type TransferOutput struct {
	Legs            int    `json:"legs"`
	CompanionSupply uint64 `json:"companion_supply"`
}

func (r *run) restore(stage domain.Stage, raw json.RawMessage) error {
	switch stage {
	case domain.StageIdentity:
		r.result.Identity = new(IdentityOutput)
		return json.Unmarshal(raw, r.result.Identity)
	case domain.StageMetadata:
		r.result.Metadata = new(metadata.Record)
		return json.Unmarshal(raw, r.result.Metadata)
	case domain.StageLayout:
		r.result.Layout = new(LayoutOutput)
		return json.Unmarshal(raw, r.result.Layout)
	case domain.StageMint:
		r.result.Mint = new(MintOutput)
		return json.Unmarshal(raw, r.result.Mint)
	case domain.StageIssue:
		r.result.Issue = new(IssueOutput)
		return json.Unmarshal(raw, r.result.Issue)
	case domain.StageRegister:
		r.result.Registration = new(RegisterOutput)
		return json.Unmarshal(raw, r.result.Registration)
	case domain.StageTransfer:
		var out TransferOutput
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		r.result.CompanionSupply = out.CompanionSupply
		return nil
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func (o *Orchestrator) identityStage(ctx context.Context, r *run) (any, error) {
	id, err := o.bootstrapper.Obtain(ctx, o.plan.Identity)
	if err != nil {
		return nil, err
	}
	recipient, _, err := keys.Resolve(ctx, o.plan.Recipient)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}
	if recipient.PublicKey() == id.PublicKey() {
		return nil, fmt.Errorf("recipient must differ from the signer %s", id.PublicKey())
	}

	r.signer = id.Key
	r.recipient = recipient
	r.result.Identity = &IdentityOutput{
		Pubkey:     id.PublicKey().String(),
		Origin:     id.Origin,
		Balance:    id.Balance,
		Airdropped: id.Airdropped,
		Recipient:  recipient.PublicKey().String(),
	}
	return r.result.Identity, nil
}

// reobtainIdentities resolves and funds the signer again on resume.
func (o *Orchestrator) reobtainIdentities(ctx context.Context, r *run) error {
	id, err := o.bootstrapper.Obtain(ctx, o.plan.Identity)
	if err != nil {
		return err
	}
	if got := id.PublicKey().String(); got != r.result.Identity.Pubkey {
		return fmt.Errorf("identity resolved to %s, run recorded %s", got, r.result.Identity.Pubkey)
	}
	recipient, _, err := keys.Resolve(ctx, o.plan.Recipient)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if got := recipient.PublicKey().String(); got != r.result.Identity.Recipient {
		return fmt.Errorf("recipient resolved to %s, run recorded %s", got, r.result.Identity.Recipient)
	}
	r.signer = id.Key
	r.recipient = recipient
	return nil
}

func (o *Orchestrator) metadataStage(ctx context.Context, r *run) (any, error) {
	rec, err := o.publisher.Publish(ctx, r.signer.PublicKey(), o.plan.Asset)
	if err != nil {
		return nil, err
	}
	r.result.Metadata = rec
	return rec, nil
}

func (o *Orchestrator) composeParams(r *run) mint.ComposeParams {
	p := mint.ComposeParams{
		Extensions: o.plan.Extensions,
		Metadata: mint.Metadata{
			Name:       r.result.Metadata.Name,
			Symbol:     r.result.Metadata.Symbol,
			URI:        r.result.Metadata.URI,
			Additional: o.plan.AdditionalMetadata,
		},
		Decimals:      o.plan.Decimals,
		MintAuthority: r.signer.PublicKey(),
		HookProgram:   o.plan.HookProgram,
	}
	if r.result.Layout != nil {
		p.Layout = r.result.Layout.layout()
	}
	return p
}

func (o *Orchestrator) layoutStage(ctx context.Context, r *run) (any, error) {
	params := o.composeParams(r)
	// The packed length does not depend on the mint address.
	layout, err := mint.PlanLayout(params, sol.PublicKey{}, o.rent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLayoutMismatch, err)
	}

	want, err := o.submitter.Client().GetMinimumBalanceForRentExemption(ctx, uint64(layout.AccountLength), o.submitter.Commitment())
	if err != nil {
		return nil, fmt.Errorf("get rent exemption: %w", err)
	}
	if want != layout.RentLamports {
		return nil, fmt.Errorf("%w: cluster rent for %d bytes is %d, planned %d",
			domain.ErrLayoutMismatch, layout.AccountLength, want, layout.RentLamports)
	}

	packed := 0
	if md := params.TokenMetadata(sol.PublicKey{}); md != nil {
		packed = md.PackedLen()
	}
	r.result.Layout = &LayoutOutput{
		Extensions:           o.plan.Extensions.Names(),
		PackedMetadataLength: packed,
		MintSpace:            layout.MintSpace,
		AccountLength:        layout.AccountLength,
		RentLamports:         layout.RentLamports,
	}
	return r.result.Layout, nil
}

func (o *Orchestrator) mintStage(ctx context.Context, r *run) (any, error) {
	key := sol.NewWallet().PrivateKey
	r.result.Mint = &MintOutput{Mint: key.PublicKey().String()}

	sig, err := o.composer.Create(ctx, r.signer, key, o.composeParams(r))
	if err != nil {
		return nil, err
	}
	r.result.Mint.Signature = sig.String()
	return r.result.Mint, nil
}

func (o *Orchestrator) issueStage(ctx context.Context, r *run) (any, error) {
	mintKey, err := sol.PublicKeyFromBase58(r.result.Mint.Mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	iss, err := o.issuer.Issue(ctx, mint.IssueParams{
		Payer:               r.signer,
		Mint:                mintKey,
		Holder:              r.signer.PublicKey(),
		Recipient:           r.recipient.PublicKey(),
		Amount:              o.plan.Supply,
		RevokeMintAuthority: o.plan.RevokeMintAuthority,
	})
	if err != nil {
		return nil, err
	}
	r.result.Issue = &IssueOutput{
		HolderAccount:    iss.HolderAccount.String(),
		RecipientAccount: iss.RecipientAccount.String(),
		Amount:           o.plan.Supply,
		Signature:        iss.Signature.String(),
	}
	return r.result.Issue, nil
}

func (o *Orchestrator) registerStage(ctx context.Context, r *run) (any, error) {
	mintKey, err := sol.PublicKeyFromBase58(r.result.Mint.Mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	reg, err := o.registrar.Register(ctx, r.signer, mintKey, o.plan.HookProgram, sol.NewWallet().PrivateKey)
	if errors.Is(err, domain.ErrDuplicateRegistration) {
		// The mint belongs to this run, so the list is from an earlier
		// attempt whose checkpoint was lost.
		reg, err = o.adoptRegistration(ctx, r, mintKey)
	}
	if err != nil {
		return nil, err
	}
	r.result.Registration = &RegisterOutput{
		ExtraAccountMetaList:  reg.ExtraAccountMetaList.String(),
		CompanionMint:         reg.CompanionMint.String(),
		CompanionAuthority:    reg.CompanionAuthority.String(),
		CompanionTokenAccount: reg.CompanionTokenAccount.String(),
		Signature:             reg.Signature.String(),
	}
	return r.result.Registration, nil
}

// adoptRegistration reads back the list a previous attempt created.
func (o *Orchestrator) adoptRegistration(ctx context.Context, r *run, mintKey sol.PublicKey) (*hook.Registration, error) {
	metas, err := hook.Lookup(ctx, o.submitter.Client(), o.submitter.Commitment(), mintKey, o.plan.HookProgram)
	if err != nil {
		return nil, err
	}
	if metas == nil {
		return nil, fmt.Errorf("%w: list for mint %s disappeared", domain.ErrDuplicateRegistration, mintKey)
	}
	companion, err := hook.CompanionMint(metas)
	if err != nil {
		return nil, err
	}
	accounts, err := hookprog.DeriveAccounts(o.plan.HookProgram, r.signer.PublicKey(), mintKey, companion)
	if err != nil {
		return nil, err
	}
	o.logger.Info("adopted existing hook registration",
		zap.String("run_id", r.id),
		zap.String("companion_mint", companion.String()),
	)
	return &hook.Registration{
		ExtraAccountMetaList:  accounts.ExtraAccountMetaList,
		CompanionMint:         accounts.CompanionMint,
		CompanionAuthority:    accounts.CompanionAuthority,
		CompanionTokenAccount: accounts.CompanionTokenAccount,
	}, nil
}

// transferStage runs RoundTrips forward and back legs, skipping legs a
// previous attempt recorded, and requires the companion supply to advance
// by one per leg.
func (o *Orchestrator) transferStage(ctx context.Context, r *run) (any, error) {
	mintKey, err := sol.PublicKeyFromBase58(r.result.Mint.Mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	companion, err := sol.PublicKeyFromBase58(r.result.Registration.CompanionMint)
	if err != nil {
		return nil, fmt.Errorf("parse companion mint: %w", err)
	}
	holder, err := sol.PublicKeyFromBase58(r.result.Issue.HolderAccount)
	if err != nil {
		return nil, fmt.Errorf("parse holder account: %w", err)
	}
	recipient, err := sol.PublicKeyFromBase58(r.result.Issue.RecipientAccount)
	if err != nil {
		return nil, fmt.Errorf("parse recipient account: %w", err)
	}

	done, err := o.legStore.GetByRunID(ctx, r.id)
	if err != nil {
		return nil, fmt.Errorf("load transfer legs: %w", err)
	}
	recorded := make(map[int]bool, len(done))
	for _, l := range done {
		recorded[l.Leg] = true
	}
	r.result.Legs = done

	client := o.submitter.Client()
	commitment := o.submitter.Commitment()
	supply, err := transfer.ReadSupply(ctx, client, commitment, companion)
	if err != nil {
		return nil, err
	}

	for leg := 0; leg < 2*o.plan.RoundTrips; leg++ {
		if recorded[leg] {
			continue
		}
		req := transfer.Request{
			Payer:       r.signer,
			Owner:       r.signer,
			Source:      holder,
			Destination: recipient,
			Mint:        mintKey,
			Amount:      o.plan.TransferAmount,
			Decimals:    o.plan.Decimals,
		}
		if leg%2 == 1 {
			req.Owner = r.recipient
			req.Source, req.Destination = recipient, holder
		}

		sig, err := o.transfers.Transfer(ctx, req)
		if err != nil {
			observability.RecordTransferLeg("rejected", supply)
			return nil, fmt.Errorf("leg %d: %w", leg, err)
		}

		after, err := transfer.ReadSupply(ctx, client, commitment, companion)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", leg, err)
		}
		if after != supply+1 {
			observability.RecordTransferLeg("hook_skipped", after)
			return nil, fmt.Errorf("leg %d: companion supply %d after transfer, want %d", leg, after, supply+1)
		}
		supply = after
		observability.RecordTransferLeg("ok", supply)

		rec := &domain.TransferLeg{
			RunID:           r.id,
			Leg:             leg,
			Signature:       sig.String(),
			Mint:            mintKey.String(),
			Source:          req.Source.String(),
			Destination:     req.Destination.String(),
			Owner:           req.Owner.PublicKey().String(),
			Amount:          req.Amount,
			CompanionSupply: supply,
			ConfirmedAt:     o.now().UnixMilli(),
		}
		if err := o.legStore.Insert(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("record leg %d: %w", leg, err)
		}
		r.result.Legs = append(r.result.Legs, rec)
		o.logger.Info("transfer leg confirmed",
			zap.String("run_id", r.id),
			zap.Int("leg", leg),
			zap.Stringer("signature", sig),
			zap.Uint64("companion_supply", supply),
		)
	}

	r.result.CompanionSupply = supply
	return &TransferOutput{Legs: len(r.result.Legs), CompanionSupply: supply}, nil
}
