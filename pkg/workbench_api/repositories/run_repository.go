package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrDuplicateActiveRun signals that the conditional insert lost the race:
// another non-terminal run already holds the dedupe key for this artifact.
var ErrDuplicateActiveRun = errors.New("an active run already exists for this artifact")

// RunRepository owns the append-only run audit trail. Status transitions
// are guarded updates: the WHERE clause names the expected prior status so
// a terminal row can never regress.
type RunRepository interface {
	InsertPending(ctx context.Context, run *models.ArtifactRun) error
	FindActiveRun(ctx context.Context, artifactID string) (*models.ArtifactRun, error)
	MarkRunning(ctx context.Context, runID string) error
	CompleteRun(ctx context.Context, runID, status string, resultMeta datatypes.JSON, errorText string) error
	GetRun(ctx context.Context, id, orgID string) (*models.ArtifactRun, error)
	ListRuns(ctx context.Context, artifactID, orgID string) ([]models.ArtifactRun, error)
	ReclaimStuckRuns(ctx context.Context, staleBefore time.Time, errorText string) (int64, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

// InsertPending creates the run row with DedupeKey set to the artifact id.
// The unique index on dedupe_key makes this the serialization point for
// concurrent triggers: the loser gets ErrDuplicateActiveRun and re-reads
// the winner's row.
func (r *runRepository) InsertPending(ctx context.Context, run *models.ArtifactRun) error {
	run.Status = models.RunStatusPending
	key := run.ArtifactID
	run.DedupeKey = &key
	err := r.db.WithContext(ctx).Create(run).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateActiveRun
	}
	return err
}

func (r *runRepository) FindActiveRun(ctx context.Context, artifactID string) (*models.ArtifactRun, error) {
	var run models.ArtifactRun
	err := r.db.WithContext(ctx).
		Where("dedupe_key = ?", artifactID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) MarkRunning(ctx context.Context, runID string) error {
	res := r.db.WithContext(ctx).Model(&models.ArtifactRun{}).
		Where("id = ? AND status = ?", runID, models.RunStatusPending).
		Update("status", models.RunStatusRunning)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("run is not pending; refusing transition to running")
	}
	return nil
}

// CompleteRun moves a running run to its terminal state and releases the
// dedupe key in the same statement.
func (r *runRepository) CompleteRun(ctx context.Context, runID, status string, resultMeta datatypes.JSON, errorText string) error {
	if !models.IsTerminalRunStatus(status) {
		return errors.New("complete requires a terminal status")
	}
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.ArtifactRun{}).
		Where("id = ? AND status = ?", runID, models.RunStatusRunning).
		Updates(map[string]any{
			"status":           status,
			"completed_at":     &now,
			"result_meta_json": resultMeta,
			"error_text":       errorText,
			"dedupe_key":       nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("run is not running; refusing terminal transition")
	}
	return nil
}

func (r *runRepository) GetRun(ctx context.Context, id, orgID string) (*models.ArtifactRun, error) {
	var run models.ArtifactRun
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) ListRuns(ctx context.Context, artifactID, orgID string) ([]models.ArtifactRun, error) {
	var runs []models.ArtifactRun
	err := r.db.WithContext(ctx).
		Where("artifact_id = ? AND organization_id = ?", artifactID, orgID).
		Order("started_at DESC, id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// ReclaimStuckRuns fails every run that has been running since before
// staleBefore. Used by the watchdog sweep after a crash left runs behind.
func (r *runRepository) ReclaimStuckRuns(ctx context.Context, staleBefore time.Time, errorText string) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.ArtifactRun{}).
		Where("status = ? AND started_at < ?", models.RunStatusRunning, staleBefore).
		Updates(map[string]any{
			"status":       models.RunStatusFailed,
			"completed_at": &now,
			"error_text":   errorText,
			"dedupe_key":   nil,
		})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	text := err.Error()
	return strings.Contains(text, "duplicate key") || strings.Contains(text, "UNIQUE constraint")
}
