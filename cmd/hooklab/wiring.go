package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/config"
	"transfer-hook-lab/internal/hook"
	"transfer-hook-lab/internal/identity"
	"transfer-hook-lab/internal/keys"
	"transfer-hook-lab/internal/metadata"
	"transfer-hook-lab/internal/metadata/gcs"
	"transfer-hook-lab/internal/metadata/irys"
	"transfer-hook-lab/internal/mint"
	"transfer-hook-lab/internal/observability"
	"transfer-hook-lab/internal/orchestrator"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/solana/stub"
	"transfer-hook-lab/internal/storage"
	chstore "transfer-hook-lab/internal/storage/clickhouse"
	"transfer-hook-lab/internal/storage/memory"
	"transfer-hook-lab/internal/storage/migrations"
	pgstore "transfer-hook-lab/internal/storage/postgres"
	"transfer-hook-lab/internal/token2022"
	"transfer-hook-lab/internal/transfer"
)

// cleanups closes resources in reverse acquisition order.
type cleanups []func()

func (c *cleanups) add(f func()) { *c = append(*c, f) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// chain is the ledger access shared by all components.
type chain struct {
	client    solana.RPCClient
	confirmer solana.Confirmer
	submitter *solana.Submitter
}

func newChain(ctx context.Context, cfg *config.Config, log *zap.Logger, cl *cleanups) (*chain, error) {
	commitment := cfg.Commitment()

	if cfg.Cluster.IsMemory() {
		hookProgram, err := cfg.HookProgram()
		if err != nil {
			return nil, err
		}
		ledger := stub.NewLedger(stub.WithHookProgram(hookProgram))
		confirmer := solana.NewPollingConfirmer(ledger, 10*time.Millisecond, 100*time.Millisecond)
		log.Info("using in-memory ledger", zap.Stringer("hook_program", hookProgram))
		return &chain{
			client:    ledger,
			confirmer: confirmer,
			submitter: solana.NewSubmitter(ledger, confirmer, commitment, log),
		}, nil
	}

	client := solana.NewHTTPClient(cfg.Cluster.RPCEndpoint)
	var confirmer solana.Confirmer = solana.NewPollingConfirmer(client, 400*time.Millisecond, 4*time.Second)
	if cfg.Cluster.WSEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, cfg.Cluster.WSEndpoint, nil, log)
		if err != nil {
			return nil, fmt.Errorf("connect websocket: %w", err)
		}
		cl.add(func() { _ = ws.Close() })
		confirmer = solana.NewWSConfirmer(ws, client)
	}
	return &chain{
		client:    client,
		confirmer: confirmer,
		submitter: solana.NewSubmitter(client, confirmer, commitment, log),
	}, nil
}

// identitySources resolves the signer and recipient key sources.
func identitySources(ctx context.Context, cfg *config.Config, cl *cleanups) (keys.Source, keys.Source, error) {
	signer := keys.Source{
		File:   cfg.Identity.KeyFile,
		Inline: cfg.Identity.InlineSecret,
	}
	if cfg.Identity.SecretName != "" {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return keys.Source{}, keys.Source{}, fmt.Errorf("create secret manager client: %w", err)
		}
		cl.add(func() { _ = client.Close() })
		provider, err := keys.NewSecretManagerProvider(client, cfg.Identity.SecretProject, cfg.Identity.SecretName)
		if err != nil {
			return keys.Source{}, keys.Source{}, err
		}
		signer.Persist = provider
	} else if cfg.Identity.PersistPath != "" {
		signer.Persist = keys.NewFileProvider(cfg.Identity.PersistPath)
	}

	recipient := keys.Source{File: cfg.Recipient.KeyFile}
	if cfg.Recipient.PersistPath != "" {
		recipient.Persist = keys.NewFileProvider(cfg.Recipient.PersistPath)
	}
	return signer, recipient, nil
}

func newUploader(ctx context.Context, cfg *config.Config, cl *cleanups) (metadata.Uploader, error) {
	switch cfg.Storage.Backend {
	case config.StorageIrys:
		return irys.NewHTTPUploader(cfg.Storage.IrysURL, cfg.Storage.IrysAPIKey), nil
	case config.StorageGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		cl.add(func() { _ = client.Close() })
		return gcs.NewUploader(client, cfg.Storage.GCSBucket, cfg.Storage.GCSPrefix), nil
	case config.StorageMemory:
		return metadata.NewMemoryUploader(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// stores holds the run ledger.
type stores struct {
	runs   storage.RunStore
	stages storage.StageStore
	legs   storage.TransferLegStore
}

// newStores connects the configured databases and applies migrations.
// Unset DSNs fall back to process memory.
func newStores(ctx context.Context, cfg *config.Config, log *zap.Logger, cl *cleanups) (*stores, error) {
	s := &stores{
		runs:   memory.NewRunStore(),
		stages: memory.NewStageStore(),
		legs:   memory.NewTransferLegStore(),
	}

	if dsn := cfg.Ledger.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		cl.add(pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.runs = pgstore.NewRunStore(pool)
		s.stages = pgstore.NewStageStore(pool)
	} else {
		log.Warn("ledger.postgres_dsn not set, run checkpoints kept in memory")
	}

	if dsn := cfg.Ledger.ClickHouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		cl.add(func() { _ = conn.Close() })
		s.legs = chstore.NewTransferLegStore(conn)
	}
	return s, nil
}

func newBootstrapper(cfg *config.Config, ch *chain, log *zap.Logger) *identity.Bootstrapper {
	return identity.New(ch.client, ch.confirmer, identity.Config{
		ThresholdLamports: cfg.Funding.ThresholdLamports,
		AirdropLamports:   cfg.Funding.AirdropLamports,
		Commitment:        cfg.Commitment(),
	}, log)
}

// newOrchestrator assembles the full workflow.
func newOrchestrator(ctx context.Context, cfg *config.Config, log *zap.Logger, cl *cleanups) (*orchestrator.Orchestrator, *stores, error) {
	ch, err := newChain(ctx, cfg, log, cl)
	if err != nil {
		return nil, nil, err
	}
	signer, recipient, err := identitySources(ctx, cfg, cl)
	if err != nil {
		return nil, nil, err
	}
	uploader, err := newUploader(ctx, cfg, cl)
	if err != nil {
		return nil, nil, err
	}
	st, err := newStores(ctx, cfg, log, cl)
	if err != nil {
		return nil, nil, err
	}
	hookProgram, err := cfg.HookProgram()
	if err != nil {
		return nil, nil, err
	}
	extensions, err := cfg.ExtensionSet()
	if err != nil {
		return nil, nil, err
	}

	rent := token2022.DefaultRent()
	orch := orchestrator.New(orchestrator.Options{
		Submitter:    ch.submitter,
		Bootstrapper: newBootstrapper(cfg, ch, log),
		Publisher:    metadata.NewPublisher(uploader, cfg.Storage.Backend, log),
		Composer:     mint.NewComposer(ch.submitter, rent, log),
		Issuer:       mint.NewIssuer(ch.submitter, log),
		Registrar:    hook.NewRegistrar(ch.submitter, log),
		Transfers:    transfer.NewOrchestrator(ch.submitter, log),
		RunStore:     st.runs,
		StageStore:   st.stages,
		LegStore:     st.legs,
		Rent:         rent,
		Logger:       log,
		Plan: orchestrator.Plan{
			Cluster:     cfg.Cluster.RPCEndpoint,
			HookProgram: hookProgram,
			Identity:    signer,
			Recipient:   recipient,
			Asset: metadata.Inputs{
				Name:        cfg.Mint.Name,
				Symbol:      cfg.Mint.Symbol,
				Description: cfg.Mint.Description,
				ImagePath:   cfg.Mint.ImagePath,
			},
			Extensions:          extensions,
			Decimals:            cfg.Mint.Decimals,
			AdditionalMetadata:  cfg.MetadataFields(),
			Supply:              cfg.Mint.Supply,
			RevokeMintAuthority: cfg.Mint.RevokeMintAuthority,
			TransferAmount:      cfg.Transfer.Amount,
			RoundTrips:          cfg.Transfer.RoundTrips,
		},
	})
	return orch, st, nil
}

// serveMetrics exposes /metrics and /health until ctx is done.
func serveMetrics(ctx context.Context, addr string, log *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
}
