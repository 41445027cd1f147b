package storage

import (
	"fmt"

	"transfer-hook-lab/internal/domain"
)

// ValidateRun checks the fields every backend requires.
func ValidateRun(r *domain.Run) error {
	if r == nil || r.RunID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	return nil
}

// ValidateStageRecord checks the fields every backend requires.
func ValidateStageRecord(rec *domain.StageRecord) error {
	switch {
	case rec == nil || rec.RunID == "":
		return fmt.Errorf("%w: run id is required", ErrInvalidInput)
	case !rec.Stage.Valid():
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, rec.Stage)
	case rec.Attempt < 1:
		return fmt.Errorf("%w: attempt must be positive", ErrInvalidInput)
	case rec.Status != domain.StageCompleted && rec.Status != domain.StageFailed:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, rec.Status)
	}
	return nil
}

// ValidateTransferLeg checks the fields every backend requires.
func ValidateTransferLeg(leg *domain.TransferLeg) error {
	switch {
	case leg == nil || leg.RunID == "":
		return fmt.Errorf("%w: run id is required", ErrInvalidInput)
	case leg.Leg < 0:
		return fmt.Errorf("%w: leg must not be negative", ErrInvalidInput)
	case leg.Signature == "":
		return fmt.Errorf("%w: signature is required", ErrInvalidInput)
	}
	return nil
}
