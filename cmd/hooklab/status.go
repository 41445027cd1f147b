package main

import (
	"github.com/spf13/cobra"

	"transfer-hook-lab/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the recorded stages and transfer legs of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var cl cleanups
		defer cl.run()

		st, err := newStores(ctx, cfg, logger, &cl)
		if err != nil {
			return err
		}
		status, err := orchestrator.LoadStatus(ctx, st.runs, st.stages, st.legs, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), status)
	},
}
