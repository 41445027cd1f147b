package main

import (
	"github.com/spf13/cobra"
)

type bootstrapOutput struct {
	Pubkey     string `json:"pubkey"`
	Origin     string `json:"origin"`
	Balance    uint64 `json:"balance"`
	Airdropped bool   `json:"airdropped"`
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Resolve the signer identity and fund it up to the threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var cl cleanups
		defer cl.run()

		ch, err := newChain(ctx, cfg, logger, &cl)
		if err != nil {
			return err
		}
		signer, _, err := identitySources(ctx, cfg, &cl)
		if err != nil {
			return err
		}
		id, err := newBootstrapper(cfg, ch, logger).Obtain(ctx, signer)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), bootstrapOutput{
			Pubkey:     id.PublicKey().String(),
			Origin:     string(id.Origin),
			Balance:    id.Balance,
			Airdropped: id.Airdropped,
		})
	},
}
