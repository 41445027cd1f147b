package domain

import "encoding/json"

// Stage identifies one step of the issuance workflow.
type Stage string

// Workflow stages in execution order.
const (
	StageIdentity Stage = "identity"
	StageMetadata Stage = "metadata"
	StageLayout   Stage = "layout"
	StageMint     Stage = "mint"
	StageIssue    Stage = "issue"
	StageRegister Stage = "register"
	StageTransfer Stage = "transfer"
)

// Stages lists all workflow stages in execution order.
var Stages = []Stage{
	StageIdentity,
	StageMetadata,
	StageLayout,
	StageMint,
	StageIssue,
	StageRegister,
	StageTransfer,
}

// Index returns the position of s in Stages, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// StageStatus is the outcome of a stage attempt.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// Run is one issuance workflow execution.
// Corresponds to hooklab_runs table in PostgreSQL.
type Run struct {
	RunID       string // PK, uuid
	Cluster     string // RPC endpoint the run targets
	Commitment  string // processed | confirmed | finalized
	HookProgram string // transfer-hook program id
	CreatedAt   int64  // ms
}

// StageRecord is one attempt of one stage of a run.
// Corresponds to hooklab_stage_records table in PostgreSQL.
// PK: (run_id, stage, attempt)
type StageRecord struct {
	RunID       string
	Stage       Stage
	Attempt     int
	Status      StageStatus
	Output      json.RawMessage // stage artifacts, set when completed
	FailureKind string          // Kind(err), set when failed
	Error       string
	Mint        string // mint address, when known
	RecordedAt  int64  // ms
}

// TransferLeg is one confirmed transfer of the issued token.
// Corresponds to transfer_legs table in ClickHouse.
// PK: (run_id, leg)
type TransferLeg struct {
	RunID           string
	Leg             int // 0-based, forward legs even
	Signature       string
	Mint            string
	Source          string // source token account
	Destination     string // destination token account
	Owner           string
	Amount          uint64
	CompanionSupply uint64 // companion mint supply observed after the leg
	ConfirmedAt     int64  // ms
}
