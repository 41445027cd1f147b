package main

import (
	sol "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"transfer-hook-lab/internal/mint"
	"transfer-hook-lab/internal/token2022"
)

var flagLayoutURI string

type layoutOutput struct {
	Extensions           []string `json:"extensions"`
	PackedMetadataLength int      `json:"packed_metadata_length"`
	MintSpace            int      `json:"mint_space"`
	AccountLength        int      `json:"account_length"`
	RentLamports         uint64   `json:"rent_lamports"`
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the mint account layout and rent for the configured extensions",
	Long: `Layout computes the allocation for the configured extension set and token
metadata without touching the ledger. --uri stands in for the metadata URI,
which is only known after publishing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		extensions, err := cfg.ExtensionSet()
		if err != nil {
			return err
		}
		hookProgram, err := cfg.HookProgram()
		if err != nil {
			return err
		}
		params := mint.ComposeParams{
			Extensions: extensions,
			Metadata: mint.Metadata{
				Name:       cfg.Mint.Name,
				Symbol:     cfg.Mint.Symbol,
				URI:        flagLayoutURI,
				Additional: cfg.MetadataFields(),
			},
			Decimals:      cfg.Mint.Decimals,
			MintAuthority: sol.PublicKey{},
			HookProgram:   hookProgram,
		}
		layout, err := mint.PlanLayout(params, sol.PublicKey{}, token2022.DefaultRent())
		if err != nil {
			return err
		}
		packed := 0
		if md := params.TokenMetadata(sol.PublicKey{}); md != nil {
			packed = md.PackedLen()
		}
		return writeJSON(cmd.OutOrStdout(), layoutOutput{
			Extensions:           extensions.Names(),
			PackedMetadataLength: packed,
			MintSpace:            layout.MintSpace,
			AccountLength:        layout.AccountLength,
			RentLamports:         layout.RentLamports,
		})
	},
}

func init() {
	layoutCmd.Flags().StringVar(&flagLayoutURI, "uri", "", "metadata URI to size the layout with")
}
