// Package pda derives program addresses. All functions are pure: the same
// seeds and program always yield the same address.
package pda

import (
	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/solana"
)

// Seeds used by the transfer-hook program.
const (
	ExtraAccountMetasSeed = "extra-account-metas"
	MintAuthoritySeed     = "mint-authority"
)

// CreateProgramAddress hashes seeds with the program id. It fails when the
// result lands on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, program sol.PublicKey) (sol.PublicKey, error) {
	return sol.CreateProgramAddress(seeds, program)
}

// FindProgramAddress searches bumps from 255 down and returns the first
// off-curve address with its bump.
func FindProgramAddress(seeds [][]byte, program sol.PublicKey) (sol.PublicKey, uint8, error) {
	return sol.FindProgramAddress(seeds, program)
}

// ExtraAccountMetaList returns the validation account the token program reads
// to resolve a mint's transfer-hook accounts.
func ExtraAccountMetaList(mint, hookProgram sol.PublicKey) (sol.PublicKey, uint8, error) {
	return sol.FindProgramAddress([][]byte{[]byte(ExtraAccountMetasSeed), mint[:]}, hookProgram)
}

// CompanionMintAuthority returns the hook program's signing PDA that owns the
// companion mint's authority and token account.
func CompanionMintAuthority(hookProgram sol.PublicKey) (sol.PublicKey, uint8, error) {
	return sol.FindProgramAddress([][]byte{[]byte(MintAuthoritySeed)}, hookProgram)
}

// AssociatedTokenAddress returns the canonical token account of owner for mint
// under the given token program. Off-curve owners are allowed.
func AssociatedTokenAddress(owner, mint, tokenProgram sol.PublicKey) (sol.PublicKey, uint8, error) {
	if tokenProgram.Equals(solana.TokenProgramID) {
		return sol.FindAssociatedTokenAddress(owner, mint)
	}
	return sol.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		solana.AssociatedTokenProgramID,
	)
}
