// Package hookprog holds client bindings for the companion transfer-hook
// program: its instruction encoding and the extra-account-meta list it
// stores for each mint.
package hookprog

import (
	"crypto/sha256"
	"fmt"

	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/extrameta"
	"transfer-hook-lab/internal/pda"
	"transfer-hook-lab/internal/solana"
)

// InitializeDiscriminator is the Anchor discriminator of
// initialize_extra_account_meta_list.
var InitializeDiscriminator = anchorDiscriminator("initialize_extra_account_meta_list")

func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// Accounts of initialize_extra_account_meta_list, in instruction order.
type Accounts struct {
	Payer                 sol.PublicKey
	ExtraAccountMetaList  sol.PublicKey
	Mint                  sol.PublicKey
	CompanionMint         sol.PublicKey
	CompanionAuthority    sol.PublicKey
	CompanionTokenAccount sol.PublicKey
}

// DeriveAccounts computes every derived account of the instruction for mint.
func DeriveAccounts(program, payer, mint, companionMint sol.PublicKey) (Accounts, error) {
	list, _, err := pda.ExtraAccountMetaList(mint, program)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive extra account meta list: %w", err)
	}
	authority, _, err := pda.CompanionMintAuthority(program)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive companion authority: %w", err)
	}
	ata, _, err := pda.AssociatedTokenAddress(authority, companionMint, solana.TokenProgramID)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive companion token account: %w", err)
	}
	return Accounts{
		Payer:                 payer,
		ExtraAccountMetaList:  list,
		Mint:                  mint,
		CompanionMint:         companionMint,
		CompanionAuthority:    authority,
		CompanionTokenAccount: ata,
	}, nil
}

// InitializeExtraAccountMetaList creates the list account and the companion
// mint. The companion mint keypair signs.
func InitializeExtraAccountMetaList(program sol.PublicKey, a Accounts) sol.Instruction {
	return sol.NewInstruction(program, sol.AccountMetaSlice{
		sol.NewAccountMeta(a.Payer, true, true),
		sol.NewAccountMeta(a.ExtraAccountMetaList, true, false),
		sol.NewAccountMeta(a.Mint, false, false),
		sol.NewAccountMeta(solana.TokenProgramID, false, false),
		sol.NewAccountMeta(solana.SystemProgramID, false, false),
		sol.NewAccountMeta(a.CompanionMint, true, true),
		sol.NewAccountMeta(a.CompanionAuthority, false, false),
		sol.NewAccountMeta(a.CompanionTokenAccount, false, false),
	}, InitializeDiscriminator[:])
}

// CompanionMetas is the list the program stores: the legacy token program,
// the companion mint, its PDA authority and the PDA's token account.
func CompanionMetas(companionMint, companionTokenAccount sol.PublicKey) ([]extrameta.ExtraAccountMeta, error) {
	authority, err := extrameta.NewSeedsMeta([]extrameta.Seed{
		extrameta.Literal([]byte(pda.MintAuthoritySeed)),
	}, false, false)
	if err != nil {
		return nil, err
	}
	return []extrameta.ExtraAccountMeta{
		extrameta.NewPubkeyMeta(solana.TokenProgramID, false, false),
		extrameta.NewPubkeyMeta(companionMint, false, true),
		authority,
		extrameta.NewPubkeyMeta(companionTokenAccount, false, true),
	}, nil
}

// Execute-time positions of the companion accounts among the resolved metas.
const (
	MetaTokenProgram = iota
	MetaCompanionMint
	MetaCompanionAuthority
	MetaCompanionTokenAccount
	metaCount
)

// CompanionMetaCount is the number of metas CompanionMetas returns.
const CompanionMetaCount = metaCount
