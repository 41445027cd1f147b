// Package orchestrator drives the issuance workflow:
// identity → metadata → layout → mint → issue → register → transfer.
// Every stage attempt is checkpointed so a failed run can be resumed.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/hook"
	"transfer-hook-lab/internal/identity"
	"transfer-hook-lab/internal/keys"
	"transfer-hook-lab/internal/metadata"
	"transfer-hook-lab/internal/mint"
	"transfer-hook-lab/internal/observability"
	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/storage"
	"transfer-hook-lab/internal/token2022"
	"transfer-hook-lab/internal/transfer"
)

// Plan is what a run issues and how it exercises the hook.
type Plan struct {
	Cluster     string
	HookProgram sol.PublicKey

	Identity  keys.Source
	Recipient keys.Source

	Asset               metadata.Inputs
	Extensions          token2022.ExtensionSet
	Decimals            uint8
	AdditionalMetadata  []token2022.MetadataField
	Supply              uint64
	RevokeMintAuthority bool

	TransferAmount uint64
	RoundTrips     int
}

// Options for creating Orchestrator.
type Options struct {
	Submitter    *solana.Submitter
	Bootstrapper *identity.Bootstrapper
	Publisher    *metadata.Publisher
	Composer     *mint.Composer
	Issuer       *mint.Issuer
	Registrar    *hook.Registrar
	Transfers    *transfer.Orchestrator

	RunStore   storage.RunStore
	StageStore storage.StageStore
	LegStore   storage.TransferLegStore

	Plan   Plan
	Rent   token2022.RentParams
	Logger *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator runs the issuance workflow.
type Orchestrator struct {
	submitter    *solana.Submitter
	bootstrapper *identity.Bootstrapper
	publisher    *metadata.Publisher
	composer     *mint.Composer
	issuer       *mint.Issuer
	registrar    *hook.Registrar
	transfers    *transfer.Orchestrator

	runStore   storage.RunStore
	stageStore storage.StageStore
	legStore   storage.TransferLegStore

	plan   Plan
	rent   token2022.RentParams
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rent == (token2022.RentParams{}) {
		opts.Rent = token2022.DefaultRent()
	}
	if opts.Plan.TransferAmount == 0 {
		opts.Plan.TransferAmount = 1
	}
	return &Orchestrator{
		submitter:    opts.Submitter,
		bootstrapper: opts.Bootstrapper,
		publisher:    opts.Publisher,
		composer:     opts.Composer,
		issuer:       opts.Issuer,
		registrar:    opts.Registrar,
		transfers:    opts.Transfers,
		runStore:     opts.RunStore,
		stageStore:   opts.StageStore,
		legStore:     opts.LegStore,
		plan:         opts.Plan,
		rent:         opts.Rent,
		logger:       opts.Logger,
		now:          opts.Now,
	}
}

// Result summarizes a finished run.
type Result struct {
	RunID           string
	Identity        *IdentityOutput
	Metadata        *metadata.Record
	Layout          *LayoutOutput
	Mint            *MintOutput
	Issue           *IssueOutput
	Registration    *RegisterOutput
	Legs            []*domain.TransferLeg
	CompanionSupply uint64
}

// run is the in-flight state of one execution.
type run struct {
	id       string
	attempts map[domain.Stage]int

	signer    sol.PrivateKey
	recipient sol.PrivateKey

	result Result
}

func (r *run) mintAddress() string {
	if r.result.Mint == nil {
		return ""
	}
	return r.result.Mint.Mint
}

// Run starts a new run and executes every stage. On a stage failure the
// partial result is returned with the error so the run can be resumed.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	r := &run{
		id:       uuid.NewString(),
		attempts: make(map[domain.Stage]int),
	}
	r.result.RunID = r.id

	err := o.runStore.Insert(ctx, &domain.Run{
		RunID:       r.id,
		Cluster:     o.plan.Cluster,
		Commitment:  string(o.submitter.Commitment()),
		HookProgram: o.plan.HookProgram.String(),
		CreatedAt:   o.now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	o.logger.Info("run started", zap.String("run_id", r.id), zap.String("cluster", o.plan.Cluster))

	return o.execute(ctx, r, 0)
}

// Resume continues runID at its first incomplete stage. Identities are
// always re-obtained and must match the ones the run recorded.
func (o *Orchestrator) Resume(ctx context.Context, runID string) (*Result, error) {
	stored, err := o.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if stored.HookProgram != o.plan.HookProgram.String() {
		return nil, fmt.Errorf("run %s targets hook program %s, configured %s", runID, stored.HookProgram, o.plan.HookProgram)
	}
	records, err := o.stageStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stages of %s: %w", runID, err)
	}

	r := &run{id: runID, attempts: make(map[domain.Stage]int)}
	r.result.RunID = runID

	completed := make(map[domain.Stage]json.RawMessage)
	for _, rec := range records {
		if rec.Attempt > r.attempts[rec.Stage] {
			r.attempts[rec.Stage] = rec.Attempt
		}
		if rec.Status == domain.StageCompleted {
			completed[rec.Stage] = rec.Output
		}
	}

	from := 0
	for from < len(domain.Stages) {
		raw, ok := completed[domain.Stages[from]]
		if !ok {
			break
		}
		if err := r.restore(domain.Stages[from], raw); err != nil {
			return nil, fmt.Errorf("restore %s output: %w", domain.Stages[from], err)
		}
		from++
	}
	o.logger.Info("resuming run", zap.String("run_id", runID), zap.Int("completed_stages", from))

	if from > 0 {
		if err := o.reobtainIdentities(ctx, r); err != nil {
			return nil, &domain.StageError{Stage: domain.StageIdentity, Mint: r.mintAddress(), Err: err}
		}
	}
	return o.execute(ctx, r, from)
}

func (o *Orchestrator) execute(ctx context.Context, r *run, from int) (*Result, error) {
	for _, stage := range domain.Stages[from:] {
		start := o.now()
		out, err := o.runStage(ctx, stage, r)
		elapsed := o.now().Sub(start).Seconds()

		if err != nil {
			observability.RecordStage(string(stage), string(domain.StageFailed), elapsed)
			observability.RecordStageFailure(string(stage), domain.Kind(err))
			stageErr := &domain.StageError{Stage: stage, Mint: r.mintAddress(), Err: err}
			if recErr := o.record(ctx, r, stage, domain.StageFailed, nil, err); recErr != nil {
				return &r.result, errors.Join(stageErr, recErr)
			}
			o.logger.Error("stage failed",
				zap.String("run_id", r.id),
				zap.String("stage", string(stage)),
				zap.String("kind", domain.Kind(err)),
				zap.Error(err),
			)
			return &r.result, stageErr
		}

		observability.RecordStage(string(stage), string(domain.StageCompleted), elapsed)
		if err := o.record(ctx, r, stage, domain.StageCompleted, out, nil); err != nil {
			return &r.result, &domain.StageError{Stage: stage, Mint: r.mintAddress(), Err: err}
		}
		o.logger.Info("stage completed",
			zap.String("run_id", r.id),
			zap.String("stage", string(stage)),
			zap.Float64("seconds", elapsed),
		)
	}

	observability.RecordRunCompleted(o.now().Unix())
	return &r.result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage domain.Stage, r *run) (any, error) {
	switch stage {
	case domain.StageIdentity:
		return o.identityStage(ctx, r)
	case domain.StageMetadata:
		return o.metadataStage(ctx, r)
	case domain.StageLayout:
		return o.layoutStage(ctx, r)
	case domain.StageMint:
		return o.mintStage(ctx, r)
	case domain.StageIssue:
		return o.issueStage(ctx, r)
	case domain.StageRegister:
		return o.registerStage(ctx, r)
	case domain.StageTransfer:
		return o.transferStage(ctx, r)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

func (o *Orchestrator) record(ctx context.Context, r *run, stage domain.Stage, status domain.StageStatus, out any, stageErr error) error {
	r.attempts[stage]++
	rec := &domain.StageRecord{
		RunID:      r.id,
		Stage:      stage,
		Attempt:    r.attempts[stage],
		Status:     status,
		Mint:       r.mintAddress(),
		RecordedAt: o.now().UnixMilli(),
	}
	if out != nil {
		raw, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("encode %s output: %w", stage, err)
		}
		rec.Output = raw
	}
	if stageErr != nil {
		rec.FailureKind = domain.Kind(stageErr)
		rec.Error = stageErr.Error()
	}
	if err := o.stageStore.Insert(ctx, rec); err != nil {
		return fmt.Errorf("record %s attempt %d: %w", stage, rec.Attempt, err)
	}
	return nil
}
