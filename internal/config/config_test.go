package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

func load(t *testing.T, path string) (*Config, error) {
	t.Helper()
	v, err := NewViper()
	require.NoError(t, err)
	return Load(v, path)
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hooklab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, solana.CommitmentConfirmed, cfg.Commitment())
	assert.Equal(t, solana.LamportsPerSOL, cfg.Funding.ThresholdLamports)
	assert.Equal(t, 2*solana.LamportsPerSOL, cfg.Funding.AirdropLamports)
	assert.Equal(t, StorageIrys, cfg.Storage.Backend)
	assert.Equal(t, uint64(1), cfg.Transfer.Amount)
	assert.Equal(t, 1, cfg.Transfer.RoundTrips)

	hook, err := cfg.HookProgram()
	require.NoError(t, err)
	assert.Equal(t, solana.DefaultHookProgramID, hook)

	set, err := cfg.ExtensionSet()
	require.NoError(t, err)
	assert.Equal(t, token2022.NewExtensionSet(token2022.ExtensionMetadataPointer, token2022.ExtensionTransferHook), set)
}

func TestLoad_File(t *testing.T) {
	path := writeYAML(t, `
cluster:
  rpc_endpoint: memory://
  commitment: finalized
mint:
  extensions: [transfer-hook, metadata-pointer, mint-close-authority]
  supply: 3
  additional_metadata:
    - key: flavor
      value: chocolate chip
storage:
  backend: memory
transfer:
  round_trips: 2
`)
	cfg, err := load(t, path)
	require.NoError(t, err)

	assert.True(t, cfg.Cluster.IsMemory())
	assert.Equal(t, solana.CommitmentFinalized, cfg.Commitment())
	assert.Equal(t, uint64(3), cfg.Mint.Supply)
	assert.Equal(t, 2, cfg.Transfer.RoundTrips)
	assert.Equal(t, []token2022.MetadataField{{Key: "flavor", Value: "chocolate chip"}}, cfg.MetadataFields())

	set, err := cfg.ExtensionSet()
	require.NoError(t, err)
	assert.Equal(t, []string{"transfer-hook", "metadata-pointer", "mint-close-authority"}, set.Names())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "storage:\n  backend: memory\nlog:\n  level: debug\n")
	t.Setenv("HOOKLAB_LOG_LEVEL", "warn")
	t.Setenv("HOOKLAB_FUNDING_THRESHOLD_LAMPORTS", "5000")
	t.Setenv("HOOKLAB_CLUSTER_RPC_ENDPOINT", MemoryEndpoint)

	cfg, err := load(t, path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, uint64(5000), cfg.Funding.ThresholdLamports)
	assert.True(t, cfg.Cluster.IsMemory())
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"commitment", func(c *Config) { c.Cluster.Commitment = "rooted" }},
		{"hook program", func(c *Config) { c.Hook.ProgramID = "not-base58!" }},
		{"extension", func(c *Config) { c.Mint.Extensions = []string{"sparkles"} }},
		{"backend", func(c *Config) { c.Storage.Backend = "ipfs" }},
		{"gcs bucket", func(c *Config) { c.Storage.Backend = StorageGCS }},
		{"zero amount", func(c *Config) { c.Transfer.Amount = 0 }},
		{"supply below amount", func(c *Config) { c.Mint.Supply = 0 }},
		{"empty metadata key", func(c *Config) { c.Mint.AdditionalMetadata = []MetadataEntry{{Value: "x"}} }},
		{"duplicate metadata key", func(c *Config) {
			c.Mint.AdditionalMetadata = []MetadataEntry{{Key: "flavor", Value: "a"}, {Key: "flavor", Value: "b"}}
		}},
		{"reserved metadata key", func(c *Config) {
			c.Mint.AdditionalMetadata = []MetadataEntry{{Key: "name", Value: "Renamed"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(t, "")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
