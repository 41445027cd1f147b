package token2022

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-hook-lab/internal/solana"
)

func TestInitializeTransferHook_Encoding(t *testing.T) {
	mint := sol.NewWallet().PublicKey()
	auth := sol.NewWallet().PublicKey()
	hook := solana.DefaultHookProgramID

	ix := InitializeTransferHook(mint, auth, hook)
	data, err := ix.Data()
	require.NoError(t, err)

	assert.Equal(t, solana.Token2022ProgramID, ix.ProgramID())
	require.Len(t, data, 66)
	assert.Equal(t, []byte{36, 0}, data[:2])
	assert.Equal(t, auth.Bytes(), data[2:34])
	assert.Equal(t, hook.Bytes(), data[34:66])

	accts := ix.Accounts()
	require.Len(t, accts, 1)
	assert.True(t, accts[0].IsWritable)
	assert.False(t, accts[0].IsSigner)
}

func TestInitializeMetadataPointer_Encoding(t *testing.T) {
	mint := sol.NewWallet().PublicKey()
	auth := sol.NewWallet().PublicKey()

	data, err := InitializeMetadataPointer(mint, auth, mint).Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{39, 0}, data[:2])
	assert.Equal(t, mint.Bytes(), data[34:66])
}

func TestInitializeMint_Encoding(t *testing.T) {
	mint := sol.NewWallet().PublicKey()
	auth := sol.NewWallet().PublicKey()

	ix := InitializeMint(solana.Token2022ProgramID, mint, 2, auth, nil)
	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 67)
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, byte(2), data[1])
	assert.Equal(t, auth.Bytes(), data[2:34])
	assert.Equal(t, byte(0), data[34])
	assert.Equal(t, solana.SysvarRentID, ix.Accounts()[1].PublicKey)
}

func TestInitializeTokenMetadata_Encoding(t *testing.T) {
	mint := sol.NewWallet().PublicKey()
	auth := sol.NewWallet().PublicKey()

	ix := InitializeTokenMetadata(solana.Token2022ProgramID, mint, auth, mint, auth, "Cookie", "CK", "u")
	data, err := ix.Data()
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("spl_token_metadata_interface:initialize_account"))
	assert.Equal(t, sum[:8], data[:8])
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(data[8:12]))
	assert.Equal(t, "Cookie", string(data[12:18]))
	assert.Len(t, data, 8+4+6+4+2+4+1)

	accts := ix.Accounts()
	require.Len(t, accts, 4)
	assert.True(t, accts[0].IsWritable)
	assert.True(t, accts[3].IsSigner)
}

func TestTransferChecked_Encoding(t *testing.T) {
	ix := TransferChecked(solana.Token2022ProgramID,
		sol.NewWallet().PublicKey(), sol.NewWallet().PublicKey(),
		sol.NewWallet().PublicKey(), sol.NewWallet().PublicKey(), 1, 0)
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 1, 0, 0, 0, 0, 0, 0, 0, 0}, data)
	assert.True(t, ix.Accounts()[3].IsSigner)
}

func TestSetAuthority_Revoke(t *testing.T) {
	data, err := SetAuthority(solana.Token2022ProgramID, sol.NewWallet().PublicKey(),
		sol.NewWallet().PublicKey(), AuthorityMintTokens, nil).Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{6, 0, 0}, data[:3])
}

func TestCreateAssociatedTokenAccount_Idempotent(t *testing.T) {
	k := sol.NewWallet().PublicKey()
	data, err := CreateAssociatedTokenAccount(k, k, k, k, solana.Token2022ProgramID, true).Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}
