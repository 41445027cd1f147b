package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "hooklab "+version)
}

func TestLayout(t *testing.T) {
	out := execute(t, "layout", "--uri", "https://gateway.irys.xyz/8ZCcmk5KLNQxF3XbS6FmhRMLRwqX3sxB2oEv8fDtNdEW")

	var got layoutOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"metadata-pointer", "transfer-hook"}, got.Extensions)
	assert.Equal(t, 302, got.MintSpace)
	assert.Equal(t, got.MintSpace+4+got.PackedMetadataLength, got.AccountLength)
	assert.Positive(t, got.RentLamports)
}
