package stub

import (
	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/extrameta"
	"transfer-hook-lab/internal/hookprog"
	"transfer-hook-lab/internal/pda"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

// executeHook runs the companion hook program. Execute is only reachable
// through a Token-2022 transfer.
func executeHook(inv *invocation) error {
	if len(inv.data) < 8 {
		return reject(solana.ReasonInvalidData, "hook instruction too short")
	}
	var disc [8]byte
	copy(disc[:], inv.data[:8])
	switch disc {
	case hookprog.InitializeDiscriminator:
		return hookInitialize(inv)
	case extrameta.ExecuteDiscriminator:
		return reject(solana.ReasonInvalidData, "execute must be invoked by the token program")
	default:
		return reject(solana.ReasonInvalidData, "unknown hook instruction")
	}
}

// hookInitialize creates the validation account for a mint and the
// companion mint owned by the program's authority PDA.
func hookInitialize(inv *invocation) error {
	payer, err := inv.signer(0)
	if err != nil {
		return err
	}
	list, err := inv.writable(1)
	if err != nil {
		return err
	}
	mint, err := inv.key(2)
	if err != nil {
		return err
	}
	tokenProgram, err := inv.key(3)
	if err != nil {
		return err
	}
	companionMint, err := inv.signer(5)
	if err != nil {
		return err
	}
	authority, err := inv.key(6)
	if err != nil {
		return err
	}
	companionATA, err := inv.key(7)
	if err != nil {
		return err
	}
	if tokenProgram.key != solana.TokenProgramID {
		return reject(solana.ReasonIncorrectProgramID, "companion mint must use the token program")
	}

	want, err := hookprog.DeriveAccounts(inv.program, payer.key, mint.key, companionMint.key)
	if err != nil {
		return reject(solana.ReasonInvalidSeeds, "%v", err)
	}
	switch {
	case want.ExtraAccountMetaList != list.key:
		return reject(solana.ReasonInvalidSeeds, "extra account meta list must be %s", want.ExtraAccountMetaList)
	case want.CompanionAuthority != authority.key:
		return reject(solana.ReasonInvalidSeeds, "mint authority must be %s", want.CompanionAuthority)
	case want.CompanionTokenAccount != companionATA.key:
		return reject(solana.ReasonInvalidSeeds, "companion token account must be %s", want.CompanionTokenAccount)
	}
	if _, _, err := loadMint(inv, mint.key, solana.Token2022ProgramID); err != nil {
		return err
	}

	metas, err := hookprog.CompanionMetas(companionMint.key, companionATA.key)
	if err != nil {
		return reject(solana.ReasonInvalidData, "%v", err)
	}
	if err := inv.allocate(payer.key, list.key, inv.program, extrameta.Pack(metas)); err != nil {
		return err
	}
	inv.log("Instruction: InitializeExtraAccountMetaList")

	data := make([]byte, token2022.MintSize)
	(&token2022.Mint{MintAuthority: &authority.key, IsInitialized: true}).EncodeBase(data)
	if err := inv.allocate(payer.key, companionMint.key, solana.TokenProgramID, data); err != nil {
		return err
	}
	inv.log("initialized companion mint %s", companionMint.key)
	return nil
}

// hookExecute mints one companion token to the PDA's token account, signing
// for the mint authority through the derivation.
func hookExecute(inv *invocation, program sol.PublicKey, extra []sol.PublicKey) error {
	if len(extra) < hookprog.CompanionMetaCount {
		return reject(solana.ReasonMissingAccount, "hook expects %d extra accounts, got %d", hookprog.CompanionMetaCount, len(extra))
	}
	authority, _, err := pda.CompanionMintAuthority(program)
	if err != nil || authority != extra[hookprog.MetaCompanionAuthority] {
		return reject(solana.ReasonInvalidSeeds, "mint authority must be %s", authority)
	}
	if extra[hookprog.MetaTokenProgram] != solana.TokenProgramID {
		return reject(solana.ReasonIncorrectProgramID, "companion token program must be %s", solana.TokenProgramID)
	}
	inv.logs = append(inv.logs, "Program log: Instruction: Execute")
	return mintSupply(inv, solana.TokenProgramID,
		extra[hookprog.MetaCompanionMint],
		extra[hookprog.MetaCompanionTokenAccount],
		authority, 1)
}
