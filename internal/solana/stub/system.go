package stub

import (
	"encoding/binary"

	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/solana"
)

// System program instruction tags.
const (
	systemCreateAccount = 0
	systemTransfer      = 2
)

func executeSystem(inv *invocation) error {
	if len(inv.data) < 4 {
		return reject(solana.ReasonInvalidData, "system instruction too short")
	}
	switch binary.LittleEndian.Uint32(inv.data) {
	case systemCreateAccount:
		return systemCreate(inv)
	case systemTransfer:
		return systemTransferLamports(inv)
	default:
		return reject(solana.ReasonInvalidData, "unsupported system instruction %d", binary.LittleEndian.Uint32(inv.data))
	}
}

// systemCreate handles CreateAccount{lamports u64, space u64, owner}.
func systemCreate(inv *invocation) error {
	if len(inv.data) != 4+8+8+32 {
		return reject(solana.ReasonInvalidData, "create account data is %d bytes", len(inv.data))
	}
	lamports := binary.LittleEndian.Uint64(inv.data[4:12])
	space := binary.LittleEndian.Uint64(inv.data[12:20])
	owner := sol.PublicKeyFromBytes(inv.data[20:52])

	from, err := inv.signer(0)
	if err != nil {
		return err
	}
	to, err := inv.signer(1)
	if err != nil {
		return err
	}
	if !from.writable || !to.writable {
		return reject(reasonReadonlyModified, "create account needs writable funder and target")
	}
	if existing := inv.account(to.key); existing != nil {
		return reject(solana.ReasonAccountInUse, "Create Account: account %s already in use", to.key)
	}
	if err := inv.debit(from.key, lamports); err != nil {
		return err
	}
	inv.state[to.key] = &Account{Lamports: lamports, Owner: owner, Data: make([]byte, space)}
	inv.log("created %s with %d bytes owned by %s", to.key, space, owner)
	return nil
}

func systemTransferLamports(inv *invocation) error {
	if len(inv.data) != 12 {
		return reject(solana.ReasonInvalidData, "transfer data is %d bytes", len(inv.data))
	}
	lamports := binary.LittleEndian.Uint64(inv.data[4:12])
	from, err := inv.signer(0)
	if err != nil {
		return err
	}
	to, err := inv.writable(1)
	if err != nil {
		return err
	}
	if err := inv.debit(from.key, lamports); err != nil {
		return err
	}
	inv.ledger.creditState(inv.state, to.key, lamports)
	return nil
}

func (l *Ledger) creditState(state map[sol.PublicKey]*Account, key sol.PublicKey, lamports uint64) {
	a, ok := state[key]
	if !ok {
		a = &Account{Owner: solana.SystemProgramID}
		state[key] = a
	}
	a.Lamports += lamports
}
