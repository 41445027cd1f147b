package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	sol "github.com/gagliardetto/solana-go"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/hook"
	"transfer-hook-lab/internal/identity"
	"transfer-hook-lab/internal/keys"
	"transfer-hook-lab/internal/metadata"
	"transfer-hook-lab/internal/mint"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/solana/stub"
	"transfer-hook-lab/internal/storage/memory"
	"transfer-hook-lab/internal/token2022"
	"transfer-hook-lab/internal/transfer"
)

type harness struct {
	ledger   *stub.Ledger
	uploader *metadata.MemoryUploader
	runs     *memory.RunStore
	stages   *memory.StageStore
	legs     *memory.TransferLegStore
	signer   *keys.MemoryProvider
	receiver *keys.MemoryProvider
}

func newHarness(t *testing.T, opts ...stub.Option) *harness {
	t.Helper()
	return &harness{
		ledger:   stub.NewLedger(opts...),
		uploader: metadata.NewMemoryUploader(),
		runs:     memory.NewRunStore(),
		stages:   memory.NewStageStore(),
		legs:     memory.NewTransferLegStore(),
		signer:   keys.NewMemoryProvider(nil),
		receiver: keys.NewMemoryProvider(nil),
	}
}

func (h *harness) orchestrator(t *testing.T, identitySrc keys.Source) *Orchestrator {
	t.Helper()
	confirmer := solana.NewPollingConfirmer(h.ledger, time.Millisecond, time.Millisecond)
	submitter := solana.NewSubmitter(h.ledger, confirmer, solana.CommitmentConfirmed, nil)

	return New(Options{
		Submitter:    submitter,
		Bootstrapper: identity.New(h.ledger, confirmer, identity.DefaultConfig(), nil),
		Publisher:    metadata.NewPublisher(h.uploader, "memory", nil),
		Composer:     mint.NewComposer(submitter, token2022.DefaultRent(), nil),
		Issuer:       mint.NewIssuer(submitter, nil),
		Registrar:    hook.NewRegistrar(submitter, nil),
		Transfers:    transfer.NewOrchestrator(submitter, nil),
		RunStore:     h.runs,
		StageStore:   h.stages,
		LegStore:     h.legs,
		Plan: Plan{
			Cluster:     "memory://",
			HookProgram: h.ledger.HookProgram(),
			Identity:    identitySrc,
			Recipient:   keys.Source{Persist: h.receiver},
			Asset: metadata.Inputs{
				Name:        "Cookie",
				Symbol:      "CKIE",
				Description: "A cool cookie",
				ImagePath:   writeCookie(t),
			},
			Extensions: token2022.NewExtensionSet(
				token2022.ExtensionMetadataPointer,
				token2022.ExtensionTransferHook,
			),
			AdditionalMetadata: []token2022.MetadataField{{Key: "flavor", Value: "chocolate chip"}},
			Supply:             1,
			RoundTrips:         1,
		},
	})
}

func writeCookie(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: 196, G: 140, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cookie.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestOrchestrator_Run_EndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	result, err := h.orchestrator(t, keys.Source{Persist: h.signer}).Run(ctx)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Identity.Origin != keys.OriginGenerated {
		t.Errorf("expected generated identity, got %s", result.Identity.Origin)
	}
	if !result.Identity.Airdropped {
		t.Error("expected airdrop for a fresh identity")
	}
	if result.Identity.Balance < identity.DefaultConfig().ThresholdLamports {
		t.Errorf("balance %d under threshold", result.Identity.Balance)
	}
	if result.Metadata.Description != "A cool cookie" {
		t.Errorf("unexpected description %q", result.Metadata.Description)
	}
	if _, ok := h.uploader.Get(result.Metadata.URI); !ok {
		t.Errorf("metadata uri %s not stored", result.Metadata.URI)
	}

	mintKey := sol.MustPublicKeyFromBase58(result.Mint.Mint)
	acct, ok := h.ledger.Account(mintKey)
	if !ok {
		t.Fatal("mint account missing")
	}
	if len(acct.Data) != result.Layout.AccountLength {
		t.Errorf("mint account has %d bytes, planned %d", len(acct.Data), result.Layout.AccountLength)
	}
	m, err := token2022.DecodeMint(acct.Data)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	md, err := m.TokenMetadata()
	if err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if md.URI != result.Metadata.URI {
		t.Errorf("on-chain uri does not match published uri")
	}

	if len(result.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(result.Legs))
	}
	for i, leg := range result.Legs {
		if leg.CompanionSupply != uint64(i+1) {
			t.Errorf("leg %d: companion supply %d, want %d", i, leg.CompanionSupply, i+1)
		}
	}
	if result.Legs[1].Owner != result.Identity.Recipient {
		t.Errorf("return leg owner %s, want recipient %s", result.Legs[1].Owner, result.Identity.Recipient)
	}
	if result.CompanionSupply != 2 {
		t.Errorf("expected companion supply 2, got %d", result.CompanionSupply)
	}

	st, err := LoadStatus(ctx, h.runs, h.stages, h.legs, result.RunID)
	if err != nil {
		t.Fatalf("load status: %v", err)
	}
	if st.Next != "" {
		t.Errorf("expected finished run, next stage %s", st.Next)
	}
	if len(st.Stages) != len(domain.Stages) {
		t.Errorf("expected %d stage records, got %d", len(domain.Stages), len(st.Stages))
	}
	if len(st.Legs) != 2 {
		t.Errorf("expected 2 recorded legs, got %d", len(st.Legs))
	}
}

func TestOrchestrator_Resume_AfterFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	src := keys.Source{Persist: h.signer}

	h.uploader.Err = errors.New("gateway timeout")
	failed, err := h.orchestrator(t, src).Run(ctx)

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != domain.StageMetadata {
		t.Fatalf("expected metadata failure, got %s", stageErr.Stage)
	}
	if !errors.Is(err, domain.ErrUploadFailure) {
		t.Errorf("expected upload failure kind, got %v", err)
	}

	if failed == nil || failed.RunID == "" {
		t.Fatal("expected partial result carrying the run id")
	}
	runID := failed.RunID

	st, err := LoadStatus(ctx, h.runs, h.stages, h.legs, runID)
	if err != nil {
		t.Fatalf("load status: %v", err)
	}
	if st.Next != domain.StageMetadata {
		t.Fatalf("expected next stage metadata, got %s", st.Next)
	}

	h.uploader.Err = nil
	airdrops := h.ledger.Calls("requestAirdrop")
	result, err := h.orchestrator(t, src).Resume(ctx, runID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if result.RunID != runID {
		t.Errorf("resume changed run id to %s", result.RunID)
	}
	if result.CompanionSupply != 2 {
		t.Errorf("expected companion supply 2, got %d", result.CompanionSupply)
	}
	if got := h.ledger.Calls("requestAirdrop"); got != airdrops {
		t.Errorf("funded identity was airdropped again (%d -> %d)", airdrops, got)
	}

	recs, err := h.stages.GetByRunID(ctx, runID)
	if err != nil {
		t.Fatalf("get stages: %v", err)
	}
	var metadataAttempts []int
	for _, r := range recs {
		if r.Stage == domain.StageMetadata {
			metadataAttempts = append(metadataAttempts, r.Attempt)
		}
		if r.Stage == domain.StageIdentity && r.Attempt != 1 {
			t.Errorf("identity stage re-recorded on resume")
		}
	}
	if len(metadataAttempts) != 2 || metadataAttempts[1] != 2 {
		t.Errorf("expected metadata attempts [1 2], got %v", metadataAttempts)
	}
}

func TestOrchestrator_Resume_IdentityMismatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.uploader.Err = errors.New("gateway timeout")
	failed, err := h.orchestrator(t, keys.Source{Persist: h.signer}).Run(ctx)
	if err == nil {
		t.Fatal("expected first run to fail")
	}
	runID := failed.RunID
	h.uploader.Err = nil

	other := keys.Source{Persist: keys.NewMemoryProvider(nil)}
	_, err = h.orchestrator(t, other).Resume(ctx, runID)

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != domain.StageIdentity {
		t.Errorf("expected identity failure, got %s", stageErr.Stage)
	}
}

// lossyStageStore drops the first completed checkpoint of one stage.
type lossyStageStore struct {
	*memory.StageStore
	stage   domain.Stage
	dropped bool
}

func (s *lossyStageStore) Insert(ctx context.Context, rec *domain.StageRecord) error {
	if rec.Stage == s.stage && rec.Status == domain.StageCompleted && !s.dropped {
		s.dropped = true
		return errors.New("connection reset")
	}
	return s.StageStore.Insert(ctx, rec)
}

func TestOrchestrator_Resume_AdoptsRegistration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	lossy := &lossyStageStore{StageStore: h.stages, stage: domain.StageRegister}
	src := keys.Source{Persist: h.signer}

	orch := h.orchestrator(t, src)
	orch.stageStore = lossy
	failed, err := orch.Run(ctx)
	if err == nil {
		t.Fatal("expected checkpoint failure")
	}

	orch = h.orchestrator(t, src)
	orch.stageStore = lossy
	result, err := orch.Resume(ctx, failed.RunID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if result.Registration.CompanionMint != failed.Registration.CompanionMint {
		t.Errorf("companion mint changed on resume: %s -> %s",
			failed.Registration.CompanionMint, result.Registration.CompanionMint)
	}
	if result.CompanionSupply != 2 {
		t.Errorf("expected companion supply 2, got %d", result.CompanionSupply)
	}
}

func TestOrchestrator_Run_LayoutMismatch(t *testing.T) {
	ctx := context.Background()
	rent := token2022.DefaultRent()
	rent.LamportsPerByteYear++
	h := newHarness(t, stub.WithRent(rent))

	_, err := h.orchestrator(t, keys.Source{Persist: h.signer}).Run(ctx)

	var stageErr *domain.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != domain.StageLayout {
		t.Errorf("expected layout failure, got %s", stageErr.Stage)
	}
	if !errors.Is(err, domain.ErrLayoutMismatch) {
		t.Errorf("expected ErrLayoutMismatch, got %v", err)
	}
	if h.ledger.Calls("sendTransaction") != 0 {
		t.Error("no transaction may be sent before the layout is confirmed")
	}
}

func TestOrchestrator_Resume_UnknownRun(t *testing.T) {
	h := newHarness(t)
	_, err := h.orchestrator(t, keys.Source{Persist: h.signer}).Resume(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}
