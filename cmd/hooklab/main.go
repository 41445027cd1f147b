// Package main provides the hooklab CLI: it issues a Token-2022 NFT whose
// transfers mint a companion token through a transfer hook.
//
// Usage:
//
//	hooklab run --config hooklab.yaml
//	hooklab resume <run-id>
//	hooklab status <run-id>
package main

import (
	"errors"
	"fmt"
	"os"

	"transfer-hook-lab/internal/domain"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)

		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			os.Exit(exitStageFailure)
		}
		os.Exit(exitUserError)
	}
}
