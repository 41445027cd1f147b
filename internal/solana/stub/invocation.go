package stub

import (
	"fmt"

	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/solana"
)

// reasonReadonlyModified is reported when an instruction writes an account
// the transaction marked read-only.
const reasonReadonlyModified = "instruction modified data of a read-only account"

type meta struct {
	key      sol.PublicKey
	signer   bool
	writable bool
}

// invocation is one instruction executing against the working state.
type invocation struct {
	ledger  *Ledger
	state   map[sol.PublicKey]*Account
	program sol.PublicKey
	metas   []meta
	data    []byte
	logs    []string
}

type instructionError struct {
	reason string
	detail string
}

func (e *instructionError) Error() string {
	return e.reason + ": " + e.detail
}

func reject(reason, format string, args ...interface{}) error {
	return &instructionError{reason: reason, detail: fmt.Sprintf(format, args...)}
}

func (inv *invocation) log(format string, args ...interface{}) {
	inv.logs = append(inv.logs, "Program log: "+fmt.Sprintf(format, args...))
}

// key returns the i-th instruction account.
func (inv *invocation) key(i int) (meta, error) {
	if i >= len(inv.metas) {
		return meta{}, reject(solana.ReasonMissingAccount, "account %d not provided", i)
	}
	return inv.metas[i], nil
}

// signer returns the i-th account and requires its signature.
func (inv *invocation) signer(i int) (meta, error) {
	m, err := inv.key(i)
	if err != nil {
		return meta{}, err
	}
	if !m.signer {
		return meta{}, reject(solana.ReasonMissingSignature, "%s did not sign", m.key)
	}
	return m, nil
}

// writable returns the i-th account and requires it to be writable.
func (inv *invocation) writable(i int) (meta, error) {
	m, err := inv.key(i)
	if err != nil {
		return meta{}, err
	}
	if !m.writable {
		return meta{}, reject(reasonReadonlyModified, "%s is read-only", m.key)
	}
	return m, nil
}

// has reports whether key was passed to the instruction.
func (inv *invocation) has(key sol.PublicKey) (meta, bool) {
	for _, m := range inv.metas {
		if m.key == key {
			return m, true
		}
	}
	return meta{}, false
}

// account returns live state, or nil when the account does not exist.
func (inv *invocation) account(key sol.PublicKey) *Account {
	a, ok := inv.state[key]
	if !ok || (a.Lamports == 0 && len(a.Data) == 0 && !a.Executable) {
		return nil
	}
	return a
}

// owned returns the account at key and requires it to belong to owner.
func (inv *invocation) owned(key, owner sol.PublicKey) (*Account, error) {
	a := inv.account(key)
	if a == nil {
		return nil, reject(solana.ReasonInvalidAccountData, "account %s does not exist", key)
	}
	if a.Owner != owner {
		return nil, reject(solana.ReasonIncorrectProgramID, "account %s is owned by %s", key, a.Owner)
	}
	return a, nil
}

// allocate creates an account funded by payer at the rent-exempt minimum.
func (inv *invocation) allocate(payer, key, owner sol.PublicKey, data []byte) error {
	if inv.account(key) != nil {
		return reject(solana.ReasonAccountInUse, "account %s already in use", key)
	}
	lamports := inv.ledger.rent.MinimumBalance(len(data))
	if err := inv.debit(payer, lamports); err != nil {
		return err
	}
	inv.state[key] = &Account{Lamports: lamports, Owner: owner, Data: data}
	return nil
}

func (inv *invocation) debit(key sol.PublicKey, lamports uint64) error {
	a := inv.account(key)
	if a == nil || a.Lamports < lamports {
		return reject(solana.ReasonInsufficientFunds, "%s cannot pay %d lamports", key, lamports)
	}
	a.Lamports -= lamports
	return nil
}
