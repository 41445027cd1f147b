package hookprog

import (
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-hook-lab/internal/extrameta"
	"transfer-hook-lab/internal/pda"
	"transfer-hook-lab/internal/solana"
)

func TestInitializeDiscriminator(t *testing.T) {
	// sha256("global:initialize_extra_account_meta_list")[:8]
	assert.Equal(t, [8]byte{0x5c, 0xc5, 0xae, 0xc5, 0x29, 0x7c, 0x13, 0x03}, InitializeDiscriminator)
}

func TestDeriveAccounts(t *testing.T) {
	program := solana.DefaultHookProgramID
	payer := sol.NewWallet().PublicKey()
	mint := sol.NewWallet().PublicKey()
	companion := sol.NewWallet().PublicKey()

	a, err := DeriveAccounts(program, payer, mint, companion)
	require.NoError(t, err)

	list, _, err := pda.ExtraAccountMetaList(mint, program)
	require.NoError(t, err)
	assert.Equal(t, list, a.ExtraAccountMetaList)

	ata, _, err := sol.FindAssociatedTokenAddress(a.CompanionAuthority, companion)
	require.NoError(t, err)
	assert.Equal(t, ata, a.CompanionTokenAccount)
}

func TestInitializeExtraAccountMetaList_Accounts(t *testing.T) {
	a, err := DeriveAccounts(solana.DefaultHookProgramID, sol.NewWallet().PublicKey(),
		sol.NewWallet().PublicKey(), sol.NewWallet().PublicKey())
	require.NoError(t, err)

	ix := InitializeExtraAccountMetaList(solana.DefaultHookProgramID, a)
	accounts := ix.Accounts()
	require.Len(t, accounts, 8)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[1].IsWritable)
	assert.True(t, accounts[5].IsSigner)
	assert.Equal(t, solana.TokenProgramID, accounts[3].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, InitializeDiscriminator[:], data)
}

func TestCompanionMetas_ResolveToDerivedAccounts(t *testing.T) {
	program := solana.DefaultHookProgramID
	mint := sol.NewWallet().PublicKey()
	a, err := DeriveAccounts(program, sol.NewWallet().PublicKey(), mint, sol.NewWallet().PublicKey())
	require.NoError(t, err)

	metas, err := CompanionMetas(a.CompanionMint, a.CompanionTokenAccount)
	require.NoError(t, err)
	require.Len(t, metas, CompanionMetaCount)

	execute := []sol.PublicKey{sol.NewWallet().PublicKey(), mint, sol.NewWallet().PublicKey(), sol.NewWallet().PublicKey(), a.ExtraAccountMetaList}
	resolved, err := extrameta.Resolve(metas, program, execute, extrameta.ExecuteData(1), nil)
	require.NoError(t, err)

	assert.Equal(t, solana.TokenProgramID, resolved[MetaTokenProgram].PublicKey)
	assert.Equal(t, a.CompanionMint, resolved[MetaCompanionMint].PublicKey)
	assert.Equal(t, a.CompanionAuthority, resolved[MetaCompanionAuthority].PublicKey)
	assert.Equal(t, a.CompanionTokenAccount, resolved[MetaCompanionTokenAccount].PublicKey)
	assert.True(t, resolved[MetaCompanionMint].IsWritable)
}
