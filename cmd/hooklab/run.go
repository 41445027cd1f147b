package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full issuance workflow",
	Long: `Run obtains and funds the signer, publishes the asset metadata, creates the
Token-2022 mint with its extensions, issues the supply, registers the transfer
hook and exercises it with round-trip transfers. Every stage is checkpointed;
a failed run can be continued with "hooklab resume <run-id>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var cl cleanups
		defer cl.run()
		serveMetrics(ctx, cfg.Metrics.Addr, logger)

		orch, _, err := newOrchestrator(ctx, cfg, logger, &cl)
		if err != nil {
			return err
		}
		result, err := orch.Run(ctx)
		return report(cmd.OutOrStdout(), result, err)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Continue a failed run at its first incomplete stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var cl cleanups
		defer cl.run()
		serveMetrics(ctx, cfg.Metrics.Addr, logger)

		orch, _, err := newOrchestrator(ctx, cfg, logger, &cl)
		if err != nil {
			return err
		}
		result, err := orch.Resume(ctx, args[0])
		return report(cmd.OutOrStdout(), result, err)
	},
}

// report prints the result as JSON. A failed run still prints the
// partial result so its run id is visible.
func report(w io.Writer, result *orchestrator.Result, runErr error) error {
	if result != nil {
		if err := writeJSON(w, result); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		if result != nil && result.RunID != "" {
			logger.Error("run failed", zap.String("run_id", result.RunID), zap.Error(runErr))
			return fmt.Errorf("%w (resume with: hooklab resume %s)", runErr, result.RunID)
		}
		return runErr
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
