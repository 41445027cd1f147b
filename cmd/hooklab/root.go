package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/config"
	"transfer-hook-lab/internal/logging"
)

const (
	exitUserError    = 1
	exitStageFailure = 2
)

var (
	flagConfig  string
	flagTimeout time.Duration

	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "hooklab",
	Short:         "Issue a Token-2022 NFT with a companion-minting transfer hook",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		var err error
		cfg, err = config.Load(v, flagConfig)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// flagBindings maps persistent flags to config keys.
var flagBindings = map[string]string{
	"rpc":        "cluster.rpc_endpoint",
	"ws":         "cluster.ws_endpoint",
	"commitment": "cluster.commitment",
	"key-file":   "identity.key_file",
	"storage":    "storage.backend",
	"log-level":  "log.level",
	"log-format": "log.format",
	"metrics":    "metrics.addr",
}

func init() {
	var err error
	v, err = config.NewViper()
	if err != nil {
		panic(err)
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: ./hooklab.yaml if present)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "overall deadline for the command (0 = none)")
	pf.String("rpc", "", "RPC endpoint, or memory:// for the in-process ledger")
	pf.String("ws", "", "WebSocket endpoint for signature subscriptions")
	pf.String("commitment", "", "commitment level (processed, confirmed, finalized)")
	pf.String("key-file", "", "signer key file")
	pf.String("storage", "", "off-chain storage backend (irys, gcs, memory)")
	pf.String("log-level", "", "log level")
	pf.String("log-format", "", "log format (json, console)")
	pf.String("metrics", "", "address to serve /metrics and /health on")

	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// commandContext cancels on SIGINT/SIGTERM and applies --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	if flagTimeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, flagTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hooklab version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "hooklab", version)
	},
}
