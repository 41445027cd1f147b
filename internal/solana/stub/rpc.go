package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/solana"
)

var _ solana.RPCClient = (*Ledger)(nil)

func (l *Ledger) record(method string) {
	l.calls[method]++
}

// GetBalance returns the lamports held by account, zero if it does not exist.
func (l *Ledger) GetBalance(ctx context.Context, account sol.PublicKey, _ solana.Commitment) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("getBalance")

	if a, ok := l.accounts[account]; ok {
		return a.Lamports, nil
	}
	return 0, nil
}

// RequestAirdrop credits lamports immediately and records a finalized status.
func (l *Ledger) RequestAirdrop(ctx context.Context, account sol.PublicKey, lamports uint64, _ solana.Commitment) (sol.Signature, error) {
	if err := ctx.Err(); err != nil {
		return sol.Signature{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("requestAirdrop")

	if l.AirdropErr != nil {
		return sol.Signature{}, l.AirdropErr
	}
	if l.AirdropCap > 0 && lamports > l.AirdropCap {
		lamports = l.AirdropCap
	}
	l.credit(account, lamports)
	sig := l.nextSignature()
	l.land(sig, nil)
	return sig, nil
}

// GetLatestBlockhash issues a blockhash transactions can reference.
func (l *Ledger) GetLatestBlockhash(ctx context.Context, _ solana.Commitment) (*solana.Blockhash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("getLatestBlockhash")

	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], l.slot)
	hash := sol.Hash(sha256.Sum256(append([]byte("blockhash"), seed[:]...)))
	l.blockhashs[hash] = struct{}{}
	return &solana.Blockhash{Hash: hash, LastValidBlockHeight: l.slot + 150}, nil
}

// GetMinimumBalanceForRentExemption applies the ledger rent parameters.
func (l *Ledger) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64, _ solana.Commitment) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("getMinimumBalanceForRentExemption")
	return l.rent.MinimumBalance(int(dataLen)), nil
}

// GetAccountInfo returns a copy of account state, or nil if absent.
func (l *Ledger) GetAccountInfo(ctx context.Context, account sol.PublicKey, _ solana.Commitment) (*solana.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("getAccountInfo")

	a, ok := l.accounts[account]
	if !ok {
		return nil, nil
	}
	return &solana.AccountInfo{
		Lamports:   a.Lamports,
		Owner:      a.Owner,
		Data:       append([]byte(nil), a.Data...),
		Executable: a.Executable,
	}, nil
}

// SendTransaction executes tx atomically. Rejections come back as the
// preflight RPC errors a node would return.
func (l *Ledger) SendTransaction(ctx context.Context, tx *sol.Transaction, _ solana.SendOptions) (sol.Signature, error) {
	if err := ctx.Err(); err != nil {
		return sol.Signature{}, err
	}
	if tx == nil {
		return sol.Signature{}, fmt.Errorf("nil transaction")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("sendTransaction")
	return l.execute(tx)
}

// GetSignatureStatuses reports landed transactions as finalized.
func (l *Ledger) GetSignatureStatuses(ctx context.Context, signatures ...sol.Signature) ([]*solana.SignatureStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("getSignatureStatuses")

	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if s, ok := l.statuses[sig]; ok {
			c := *s
			out[i] = &c
		}
	}
	return out, nil
}
