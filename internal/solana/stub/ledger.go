// Package stub provides an in-memory ledger implementing solana.RPCClient.
// It executes System, Token, Token-2022, associated token account and
// companion hook program instructions atomically, enough to run the whole
// issuance workflow without a validator.
package stub

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

// DefaultFeePerSignature matches the cluster base fee.
const DefaultFeePerSignature uint64 = 5000

// Account is ledger account state.
type Account struct {
	Lamports   uint64
	Owner      sol.PublicKey
	Data       []byte
	Executable bool
}

func (a *Account) clone() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// Ledger is an in-memory cluster. All methods are safe for concurrent use;
// transactions are serialized and the first committer wins.
type Ledger struct {
	mu sync.Mutex

	accounts   map[sol.PublicKey]*Account
	statuses   map[sol.Signature]*solana.SignatureStatus
	blockhashs map[sol.Hash]struct{}
	slot       uint64
	nonce      uint64

	rent            token2022.RentParams
	feePerSignature uint64
	hookProgram     sol.PublicKey

	// AirdropErr, when set, is returned by RequestAirdrop.
	AirdropErr error
	// AirdropCap limits the lamports credited per airdrop; 0 means unlimited.
	AirdropCap uint64

	calls map[string]int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithHookProgram sets the address the companion hook program runs at.
func WithHookProgram(program sol.PublicKey) Option {
	return func(l *Ledger) {
		l.hookProgram = program
	}
}

// WithFeePerSignature sets the transaction fee charged per signature.
func WithFeePerSignature(fee uint64) Option {
	return func(l *Ledger) {
		l.feePerSignature = fee
	}
}

// WithRent overrides the rent parameters.
func WithRent(rent token2022.RentParams) Option {
	return func(l *Ledger) {
		l.rent = rent
	}
}

// NewLedger creates a ledger with the builtin programs deployed.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		accounts:        make(map[sol.PublicKey]*Account),
		statuses:        make(map[sol.Signature]*solana.SignatureStatus),
		blockhashs:      make(map[sol.Hash]struct{}),
		slot:            1,
		rent:            token2022.DefaultRent(),
		feePerSignature: DefaultFeePerSignature,
		hookProgram:     solana.DefaultHookProgramID,
		calls:           make(map[string]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, p := range []sol.PublicKey{
		solana.SystemProgramID,
		solana.TokenProgramID,
		solana.Token2022ProgramID,
		solana.AssociatedTokenProgramID,
		l.hookProgram,
	} {
		l.accounts[p] = &Account{Lamports: 1, Owner: sol.BPFLoaderUpgradeableProgramID, Executable: true}
	}
	l.accounts[solana.SysvarRentID] = &Account{Lamports: 1, Owner: sol.SysVarRentPubkey, Data: make([]byte, 17)}
	return l
}

// HookProgram returns the address of the companion hook program.
func (l *Ledger) HookProgram() sol.PublicKey {
	return l.hookProgram
}

// SetAccount installs account state directly.
func (l *Ledger) SetAccount(key sol.PublicKey, acct Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[key] = acct.clone()
}

// Fund credits lamports to key, creating a system account if needed.
func (l *Ledger) Fund(key sol.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(key, lamports)
}

// Account returns a copy of the account at key.
func (l *Ledger) Account(key sol.PublicKey) (*Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// Calls returns how many times an RPC method was invoked.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

func (l *Ledger) credit(key sol.PublicKey, lamports uint64) {
	l.creditState(l.accounts, key, lamports)
}

// nextSignature returns a unique signature for ledger-originated
// transactions such as airdrops.
func (l *Ledger) nextSignature() sol.Signature {
	l.nonce++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], l.nonce)
	a := sha256.Sum256(append([]byte("airdrop-a"), seed[:]...))
	b := sha256.Sum256(append([]byte("airdrop-b"), seed[:]...))
	var sig sol.Signature
	copy(sig[:32], a[:])
	copy(sig[32:], b[:])
	return sig
}

func (l *Ledger) land(sig sol.Signature, txErr interface{}) {
	l.slot++
	zero := uint64(0)
	l.statuses[sig] = &solana.SignatureStatus{
		Slot:               l.slot,
		Confirmations:      &zero,
		Err:                txErr,
		ConfirmationStatus: solana.CommitmentFinalized,
	}
}

// execute runs a signed transaction against a copy of the ledger and
// commits only if every instruction and the rent check succeed.
func (l *Ledger) execute(tx *sol.Transaction) (sol.Signature, error) {
	msg := tx.Message
	keys := msg.AccountKeys
	numSigners := int(msg.Header.NumRequiredSignatures)
	if numSigners == 0 || len(tx.Signatures) != numSigners || len(keys) < numSigners {
		return sol.Signature{}, verificationFailure()
	}
	if _, ok := l.blockhashs[msg.RecentBlockhash]; !ok {
		return sol.Signature{}, &solana.RPCError{
			Code:    solana.CodeBlockhashNotFound,
			Message: "Transaction simulation failed: Blockhash not found",
		}
	}

	content, err := msg.MarshalBinary()
	if err != nil {
		return sol.Signature{}, fmt.Errorf("marshal message: %w", err)
	}
	for i := 0; i < numSigners; i++ {
		if !ed25519.Verify(ed25519.PublicKey(keys[i][:]), content, tx.Signatures[i][:]) {
			return sol.Signature{}, verificationFailure()
		}
	}
	sig := tx.Signatures[0]
	if _, seen := l.statuses[sig]; seen {
		return sol.Signature{}, &solana.RPCError{
			Code:    solana.CodeSendTransactionPreflightFailure,
			Message: "Transaction simulation failed: This transaction has already been processed",
		}
	}

	state := make(map[sol.PublicKey]*Account, len(l.accounts))
	for k, a := range l.accounts {
		state[k] = a.clone()
	}

	fee := l.feePerSignature * uint64(numSigners)
	payer := state[keys[0]]
	if payer == nil || payer.Lamports < fee {
		return sol.Signature{}, &solana.RPCError{
			Code:    solana.CodeSendTransactionPreflightFailure,
			Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
		}
	}
	payer.Lamports -= fee

	var logs []string
	for i, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= len(keys) {
			return sol.Signature{}, preflightFailure(i, solana.ReasonIncorrectProgramID, logs)
		}
		inv := &invocation{
			ledger:  l,
			state:   state,
			program: keys[ci.ProgramIDIndex],
			data:    []byte(ci.Data),
		}
		for _, idx := range ci.Accounts {
			if int(idx) >= len(keys) {
				return sol.Signature{}, preflightFailure(i, solana.ReasonMissingAccount, logs)
			}
			inv.metas = append(inv.metas, accountMeta(msg, int(idx)))
		}

		logs = append(logs, fmt.Sprintf("Program %s invoke [1]", inv.program))
		if err := l.dispatch(inv); err != nil {
			var ie *instructionError
			if !errors.As(err, &ie) {
				return sol.Signature{}, err
			}
			logs = append(logs, inv.logs...)
			logs = append(logs, fmt.Sprintf("Program %s failed: %s", inv.program, ie.detail))
			return sol.Signature{}, preflightFailure(i, ie.reason, logs)
		}
		logs = append(logs, inv.logs...)
		logs = append(logs, fmt.Sprintf("Program %s success", inv.program))
	}

	for i, key := range keys {
		if !isWritable(msg, i) {
			continue
		}
		a := state[key]
		if a == nil || a.Executable || (a.Lamports == 0 && len(a.Data) == 0) {
			continue
		}
		if a.Lamports < l.rent.MinimumBalance(len(a.Data)) {
			return sol.Signature{}, &solana.RPCError{
				Code:    solana.CodeSendTransactionPreflightFailure,
				Message: fmt.Sprintf("Transaction simulation failed: Transaction results in an account (%d) with insufficient funds for rent", i),
				Data:    logsData(logs),
			}
		}
	}

	for k, a := range state {
		if a.Lamports == 0 && len(a.Data) == 0 && !a.Executable {
			delete(state, k)
		}
	}
	l.accounts = state
	l.land(sig, nil)
	return sig, nil
}

func (l *Ledger) dispatch(inv *invocation) error {
	switch inv.program {
	case solana.SystemProgramID:
		return executeSystem(inv)
	case solana.TokenProgramID, solana.Token2022ProgramID:
		return executeToken(inv)
	case solana.AssociatedTokenProgramID:
		return executeAssociatedToken(inv)
	case l.hookProgram:
		return executeHook(inv)
	default:
		return reject(solana.ReasonIncorrectProgramID, "program %s is not deployed", inv.program)
	}
}

func accountMeta(msg sol.Message, idx int) meta {
	return meta{
		key:      msg.AccountKeys[idx],
		signer:   idx < int(msg.Header.NumRequiredSignatures),
		writable: isWritable(msg, idx),
	}
}

func isWritable(msg sol.Message, idx int) bool {
	h := msg.Header
	signers := int(h.NumRequiredSignatures)
	if idx < signers {
		return idx < signers-int(h.NumReadonlySignedAccounts)
	}
	return idx < len(msg.AccountKeys)-int(h.NumReadonlyUnsignedAccounts)
}

func verificationFailure() error {
	return &solana.RPCError{Code: -32003, Message: "Transaction signature verification failure"}
}

func preflightFailure(index int, reason string, logs []string) error {
	return &solana.RPCError{
		Code:    solana.CodeSendTransactionPreflightFailure,
		Message: fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %s", index, reason),
		Data:    logsData(logs),
	}
}

func logsData(logs []string) json.RawMessage {
	data, _ := json.Marshal(map[string]interface{}{"logs": logs})
	return data
}
