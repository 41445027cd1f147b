// Package config loads hooklab settings from defaults, an optional YAML
// file, a .env file, HOOKLAB_* environment variables and bound CLI flags,
// in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	sol "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/token2022"
)

// EnvPrefix prefixes every environment override, e.g. HOOKLAB_CLUSTER_RPC_ENDPOINT.
const EnvPrefix = "HOOKLAB"

// MemoryEndpoint selects the in-process ledger instead of a cluster.
const MemoryEndpoint = "memory://"

// Config is the full process configuration.
type Config struct {
	Identity  IdentityConfig  `mapstructure:"identity"`
	Recipient RecipientConfig `mapstructure:"recipient"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	Funding   FundingConfig   `mapstructure:"funding"`
	Mint      MintConfig      `mapstructure:"mint"`
	Hook      HookConfig      `mapstructure:"hook"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// IdentityConfig locates the signer key. KeyFile wins over InlineSecret;
// with neither, the key is loaded from or generated into SecretName (when
// set) or PersistPath.
type IdentityConfig struct {
	KeyFile       string `mapstructure:"key_file"`
	InlineSecret  string `mapstructure:"inline_secret"`
	PersistPath   string `mapstructure:"persist_path"`
	SecretName    string `mapstructure:"secret_name"`
	SecretProject string `mapstructure:"secret_project"`
}

type RecipientConfig struct {
	KeyFile     string `mapstructure:"key_file"`
	PersistPath string `mapstructure:"persist_path"`
}

type ClusterConfig struct {
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	WSEndpoint  string `mapstructure:"ws_endpoint"`
	Commitment  string `mapstructure:"commitment"`
}

// IsMemory reports whether the in-process ledger is selected.
func (c ClusterConfig) IsMemory() bool {
	return c.RPCEndpoint == MemoryEndpoint
}

type FundingConfig struct {
	ThresholdLamports uint64 `mapstructure:"threshold_lamports"`
	AirdropLamports   uint64 `mapstructure:"airdrop_lamports"`
}

// MetadataEntry is one additional on-chain metadata pair.
type MetadataEntry struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type MintConfig struct {
	Decimals            uint8           `mapstructure:"decimals"`
	Extensions          []string        `mapstructure:"extensions"`
	Name                string          `mapstructure:"name"`
	Symbol              string          `mapstructure:"symbol"`
	Description         string          `mapstructure:"description"`
	ImagePath           string          `mapstructure:"image_path"`
	AdditionalMetadata  []MetadataEntry `mapstructure:"additional_metadata"`
	RevokeMintAuthority bool            `mapstructure:"revoke_mint_authority"`
	Supply              uint64          `mapstructure:"supply"`
}

type HookConfig struct {
	ProgramID string `mapstructure:"program_id"`
}

type TransferConfig struct {
	Amount     uint64 `mapstructure:"amount"`
	RoundTrips int    `mapstructure:"round_trips"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	IrysURL    string `mapstructure:"irys_url"`
	IrysAPIKey string `mapstructure:"irys_api_key"`
	GCSBucket  string `mapstructure:"gcs_bucket"`
	GCSPrefix  string `mapstructure:"gcs_prefix"`
}

// LedgerConfig selects the run ledger backends. Empty DSNs keep the
// in-memory stores.
type LedgerConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Storage backends.
const (
	StorageIrys   = "irys"
	StorageGCS    = "gcs"
	StorageMemory = "memory"
)

var defaults = map[string]any{
	"identity.key_file":       "",
	"identity.inline_secret":  "",
	"identity.persist_path":   "~/.config/hooklab/id.json",
	"identity.secret_name":    "",
	"identity.secret_project": "",

	"recipient.key_file":     "",
	"recipient.persist_path": "~/.config/hooklab/recipient.json",

	"cluster.rpc_endpoint": "https://api.devnet.solana.com",
	"cluster.ws_endpoint":  "",
	"cluster.commitment":   string(solana.CommitmentConfirmed),

	"funding.threshold_lamports": solana.LamportsPerSOL,
	"funding.airdrop_lamports":   2 * solana.LamportsPerSOL,

	"mint.decimals":              0,
	"mint.extensions":            []string{"metadata-pointer", "transfer-hook"},
	"mint.name":                  "Cookie",
	"mint.symbol":                "CKIE",
	"mint.description":           "A cool cookie",
	"mint.image_path":            "assets/cookie.png",
	"mint.additional_metadata":   []map[string]any{},
	"mint.revoke_mint_authority": false,
	"mint.supply":                1,

	"hook.program_id": solana.DefaultHookProgramID.String(),

	"transfer.amount":      1,
	"transfer.round_trips": 1,

	"storage.backend":      StorageIrys,
	"storage.irys_url":     "https://uploader.irys.xyz",
	"storage.irys_api_key": "",
	"storage.gcs_bucket":   "",
	"storage.gcs_prefix":   "hooklab/",

	"ledger.postgres_dsn":   "",
	"ledger.clickhouse_dsn": "",

	"metrics.addr": "",

	"log.level":  "info",
	"log.format": "console",
}

// NewViper returns a viper instance with defaults and environment binding
// applied. A .env file in the working directory is loaded first; existing
// environment variables are not overwritten.
func NewViper() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Load reads path into v when given, then decodes and validates the result.
// A missing path is an error; with no path, hooklab.yaml in the working
// directory is read if present.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("hooklab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a stage.
func (c *Config) Validate() error {
	if _, err := solana.ParseCommitment(c.Cluster.Commitment); err != nil {
		return fmt.Errorf("cluster.commitment: %w", err)
	}
	if c.Cluster.RPCEndpoint == "" {
		return errors.New("cluster.rpc_endpoint is required")
	}
	if _, err := c.HookProgram(); err != nil {
		return err
	}
	if _, err := c.ExtensionSet(); err != nil {
		return fmt.Errorf("mint.extensions: %w", err)
	}
	switch c.Storage.Backend {
	case StorageIrys:
		if c.Storage.IrysURL == "" {
			return errors.New("storage.irys_url is required for the irys backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket is required for the gcs backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Transfer.RoundTrips < 0 {
		return fmt.Errorf("transfer.round_trips must not be negative, got %d", c.Transfer.RoundTrips)
	}
	if c.Transfer.Amount == 0 {
		return errors.New("transfer.amount must be positive")
	}
	if c.Transfer.RoundTrips > 0 && c.Mint.Supply < c.Transfer.Amount {
		return fmt.Errorf("mint.supply %d is below transfer.amount %d", c.Mint.Supply, c.Transfer.Amount)
	}
	if err := token2022.ValidateAdditionalMetadata(c.MetadataFields()); err != nil {
		return fmt.Errorf("mint.additional_metadata: %w", err)
	}
	return nil
}

// HookProgram parses hook.program_id.
func (c *Config) HookProgram() (sol.PublicKey, error) {
	key, err := sol.PublicKeyFromBase58(c.Hook.ProgramID)
	if err != nil {
		return sol.PublicKey{}, fmt.Errorf("hook.program_id: %w", err)
	}
	return key, nil
}

// ExtensionSet parses mint.extensions in declared order.
func (c *Config) ExtensionSet() (token2022.ExtensionSet, error) {
	return token2022.ParseExtensionSet(c.Mint.Extensions)
}

// Commitment returns the parsed cluster commitment.
func (c *Config) Commitment() solana.Commitment {
	return solana.Commitment(c.Cluster.Commitment)
}

// MetadataFields converts the additional metadata entries.
func (c *Config) MetadataFields() []token2022.MetadataField {
	fields := make([]token2022.MetadataField, 0, len(c.Mint.AdditionalMetadata))
	for _, e := range c.Mint.AdditionalMetadata {
		fields = append(fields, token2022.MetadataField{Key: e.Key, Value: e.Value})
	}
	return fields
}
