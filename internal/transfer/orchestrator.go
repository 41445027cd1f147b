// Package transfer submits Token-2022 transfers with the transfer hook's
// extra accounts resolved and attached.
package transfer

import (
	"context"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/extrameta"
	"transfer-hook-lab/internal/pda"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

// ErrExtraAccountsUnresolved is returned when the hook's extra accounts
// cannot be resolved, including when the mint was never registered.
var ErrExtraAccountsUnresolved = fmt.Errorf("%w: extra accounts unresolved", domain.ErrTransferRejected)

// Request is one transfer of Amount base units of Mint.
type Request struct {
	Payer       sol.PrivateKey
	Owner       sol.PrivateKey
	Source      sol.PublicKey
	Destination sol.PublicKey
	Mint        sol.PublicKey
	Amount      uint64
	Decimals    uint8
}

// Orchestrator builds and submits hooked transfers.
type Orchestrator struct {
	submitter *solana.Submitter
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator. A nil logger disables logging.
func NewOrchestrator(submitter *solana.Submitter, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{submitter: submitter, logger: logger}
}

// Transfer submits a transfer-checked instruction for req. Transfers of a
// hooked mint carry the resolved extra accounts, the hook program and the
// validation account. A rejected transfer is not retried.
func (o *Orchestrator) Transfer(ctx context.Context, req Request) (sol.Signature, error) {
	ix, err := o.BuildInstruction(ctx, req)
	if err != nil {
		return sol.Signature{}, err
	}

	sig, err := o.submitter.Submit(ctx, "transfer", req.Payer.PublicKey(), []sol.Instruction{ix}, req.Payer, req.Owner)
	if err != nil {
		if isLedgerRejection(err) {
			return sol.Signature{}, fmt.Errorf("%w: %w", domain.ErrTransferRejected, err)
		}
		return sol.Signature{}, fmt.Errorf("transfer %s: %w", req.Mint, err)
	}

	o.logger.Info("transfer confirmed",
		zap.String("mint", req.Mint.String()),
		zap.String("source", req.Source.String()),
		zap.String("destination", req.Destination.String()),
		zap.Uint64("amount", req.Amount),
		zap.Stringer("signature", sig),
	)
	return sig, nil
}

// BuildInstruction returns the transfer-checked instruction with every
// account the mint's hook needs.
func (o *Orchestrator) BuildInstruction(ctx context.Context, req Request) (sol.Instruction, error) {
	client := o.submitter.Client()
	commitment := o.submitter.Commitment()
	owner := req.Owner.PublicKey()

	info, err := client.GetAccountInfo(ctx, req.Mint, commitment)
	if err != nil {
		return nil, fmt.Errorf("read mint %s: %w", req.Mint, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: mint %s not found", domain.ErrTransferRejected, req.Mint)
	}
	if info.Owner != solana.Token2022ProgramID {
		return nil, fmt.Errorf("%w: mint %s is owned by %s", domain.ErrTransferRejected, req.Mint, info.Owner)
	}
	m, err := token2022.DecodeMint(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode mint: %w", domain.ErrTransferRejected, err)
	}

	ix := token2022.TransferChecked(solana.Token2022ProgramID, req.Source, req.Mint, req.Destination, owner, req.Amount, req.Decimals)

	_, hookProgram, err := m.TransferHook()
	if err != nil || hookProgram.IsZero() {
		return ix, nil
	}

	list, _, err := pda.ExtraAccountMetaList(req.Mint, hookProgram)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraAccountsUnresolved, err)
	}
	listInfo, err := client.GetAccountInfo(ctx, list, commitment)
	if err != nil {
		return nil, fmt.Errorf("read extra account meta list: %w", err)
	}
	if listInfo == nil {
		return nil, fmt.Errorf("%w: no extra account meta list %s for mint %s", ErrExtraAccountsUnresolved, list, req.Mint)
	}
	metas, err := extrameta.Unpack(listInfo.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraAccountsUnresolved, err)
	}

	execute := []sol.PublicKey{req.Source, req.Mint, req.Destination, owner, list}
	resolved, err := extrameta.Resolve(metas, hookProgram, execute, extrameta.ExecuteData(req.Amount),
		func(key sol.PublicKey) ([]byte, error) {
			acct, err := client.GetAccountInfo(ctx, key, commitment)
			if err != nil || acct == nil {
				return nil, err
			}
			return acct.Data, nil
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraAccountsUnresolved, err)
	}

	ix.AccountValues = appendHookAccounts(ix.AccountValues, resolved, hookProgram, list)

	o.logger.Debug("resolved hook accounts",
		zap.String("mint", req.Mint.String()),
		zap.String("hook_program", hookProgram.String()),
		zap.Int("extra_accounts", len(resolved)),
	)
	return ix, nil
}

// appendHookAccounts adds the resolved extra metas followed by the hook
// program and the validation list. Extra metas are checked against the
// execute account set, which includes the read-only validation list.
func appendHookAccounts(accounts sol.AccountMetaSlice, resolved []*sol.AccountMeta, hookProgram, list sol.PublicKey) sol.AccountMetaSlice {
	listMeta := sol.NewAccountMeta(list, false, false)
	known := append(append(sol.AccountMetaSlice{}, accounts...), listMeta)
	for _, meta := range resolved {
		capped := deEscalate(known, meta)
		accounts = append(accounts, capped)
		known = append(known, capped)
	}
	return append(accounts, sol.NewAccountMeta(hookProgram, false, false), listMeta)
}

// deEscalate caps the privileges of an extra meta at those the account
// already has on the instruction.
func deEscalate(existing sol.AccountMetaSlice, meta *sol.AccountMeta) *sol.AccountMeta {
	for _, e := range existing {
		if e.PublicKey.Equals(meta.PublicKey) {
			return sol.NewAccountMeta(meta.PublicKey, meta.IsWritable && e.IsWritable, meta.IsSigner && e.IsSigner)
		}
	}
	return meta
}

func isLedgerRejection(err error) bool {
	var rpcErr *solana.RPCError
	var txErr *solana.TransactionError
	return errors.As(err, &rpcErr) || errors.As(err, &txErr)
}

// ReadSupply returns the supply of a legacy or Token-2022 mint.
func ReadSupply(ctx context.Context, client solana.RPCClient, commitment solana.Commitment, mint sol.PublicKey) (uint64, error) {
	info, err := client.GetAccountInfo(ctx, mint, commitment)
	if err != nil {
		return 0, fmt.Errorf("read mint %s: %w", mint, err)
	}
	if info == nil {
		return 0, fmt.Errorf("mint %s not found", mint)
	}
	m, err := token2022.DecodeMint(info.Data)
	if err != nil {
		return 0, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	return m.Supply, nil
}
