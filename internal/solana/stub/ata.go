package stub

import (
	"transfer-hook-lab/internal/pda"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

func executeAssociatedToken(inv *invocation) error {
	idempotent := false
	switch {
	case len(inv.data) == 0 || (len(inv.data) == 1 && inv.data[0] == token2022.ATACreate):
	case len(inv.data) == 1 && inv.data[0] == token2022.ATACreateIdempotent:
		idempotent = true
	default:
		return reject(solana.ReasonInvalidData, "unsupported associated token instruction")
	}

	payer, err := inv.signer(0)
	if err != nil {
		return err
	}
	ata, err := inv.writable(1)
	if err != nil {
		return err
	}
	owner, err := inv.key(2)
	if err != nil {
		return err
	}
	mintKey, err := inv.key(3)
	if err != nil {
		return err
	}
	tokenProgram, err := inv.key(5)
	if err != nil {
		return err
	}
	if tokenProgram.key != solana.TokenProgramID && tokenProgram.key != solana.Token2022ProgramID {
		return reject(solana.ReasonIncorrectProgramID, "%s is not a token program", tokenProgram.key)
	}

	want, _, err := pda.AssociatedTokenAddress(owner.key, mintKey.key, tokenProgram.key)
	if err != nil || want != ata.key {
		return reject(solana.ReasonInvalidSeeds, "associated address of %s is %s", owner.key, want)
	}

	if existing := inv.account(ata.key); existing != nil {
		if !idempotent {
			return reject(solana.ReasonAccountInUse, "associated token account %s already in use", ata.key)
		}
		acct, err := token2022.DecodeTokenAccount(existing.Data)
		if err != nil || existing.Owner != tokenProgram.key || acct.Owner != owner.key || acct.Mint != mintKey.key {
			return reject(solana.ReasonInvalidAccountData, "existing account %s is not the associated token account", ata.key)
		}
		inv.log("associated token account %s exists", ata.key)
		return nil
	}

	_, m, err := loadMint(inv, mintKey.key, tokenProgram.key)
	if err != nil {
		return err
	}
	size := token2022.AccountSize
	var exts token2022.ExtensionSet
	if tokenProgram.key == solana.Token2022ProgramID {
		exts = token2022.ExtensionSet{token2022.ExtensionImmutableOwner}
		if _, ok := m.Extension(token2022.ExtensionTransferHook); ok {
			exts = append(exts, token2022.ExtensionTransferHookAccount)
		}
		if _, ok := m.Extension(token2022.ExtensionNonTransferable); ok {
			exts = append(exts, token2022.ExtensionNonTransferableAccount)
		}
		if size, err = token2022.AccountLen(exts); err != nil {
			return reject(solana.ReasonInvalidAccountData, "%v", err)
		}
	}
	data := token2022.EncodeTokenAccount(&token2022.TokenAccount{
		Mint:  mintKey.key,
		Owner: owner.key,
		State: 1,
	}, size, exts)
	if err := inv.allocate(payer.key, ata.key, tokenProgram.key, data); err != nil {
		return err
	}
	inv.log("created associated token account %s", ata.key)
	return nil
}
