package token2022

import (
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMetadata() *TokenMetadata {
	return &TokenMetadata{
		UpdateAuthority: sol.NewWallet().PublicKey(),
		Mint:            sol.NewWallet().PublicKey(),
		Name:            "Cookie",
		Symbol:          "COOKIE",
		URI:             "https://gateway.irys.xyz/abc",
		AdditionalMetadata: []MetadataField{
			{Key: "flavor", Value: "chocolate"},
		},
	}
}

func TestTokenMetadata_PackedLenMatchesPack(t *testing.T) {
	m := sampleMetadata()
	packed, err := m.Pack()
	require.NoError(t, err)
	assert.Equal(t, m.PackedLen(), len(packed))
	assert.Equal(t, 32+32+(4+6)+(4+6)+(4+28)+4+(4+6)+(4+9), len(packed))
}

func TestTokenMetadata_Unpack(t *testing.T) {
	m := sampleMetadata()
	packed, err := m.Pack()
	require.NoError(t, err)

	got, err := UnpackMetadata(packed)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestUnpackMetadata_Truncated(t *testing.T) {
	packed, err := sampleMetadata().Pack()
	require.NoError(t, err)

	_, err = UnpackMetadata(packed[:70])
	assert.ErrorIs(t, err, ErrMetadataTruncated)
}

func TestTokenMetadata_Set(t *testing.T) {
	m := sampleMetadata()
	m.Set(FieldFor("name"), "Crumb")
	m.Set(FieldFor("flavor"), "oat")
	m.Set(FieldFor("shape"), "round")

	assert.Equal(t, "Crumb", m.Name)
	assert.Equal(t, []MetadataField{{"flavor", "oat"}, {"shape", "round"}}, m.AdditionalMetadata)
}

func TestValidateAdditionalMetadata(t *testing.T) {
	require.NoError(t, ValidateAdditionalMetadata(nil))
	require.NoError(t, ValidateAdditionalMetadata([]MetadataField{{Key: "flavor"}, {Key: "texture"}}))

	for _, fields := range [][]MetadataField{
		{{Key: ""}},
		{{Key: "flavor", Value: "a"}, {Key: "flavor", Value: "b"}},
		{{Key: "name"}},
		{{Key: "symbol"}},
		{{Key: "uri"}},
	} {
		assert.ErrorIs(t, ValidateAdditionalMetadata(fields), ErrInvalidMetadataField)
	}
}
