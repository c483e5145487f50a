// Package repos provides data access for the run ledger
package repos

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anudishu/promote-cleanup/internal/db/models"
)

// RunRepository handles database operations for runs
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{
		db: db,
	}
}

// Create records a new run
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByRunID retrieves a run by its external identifier
func (r *RunRepository) GetByRunID(ctx context.Context, runID string) (*models.Run, error) {
	var run models.Run
	if err := r.db.WithContext(ctx).
		Where(fmt.Sprintf("%s = ?", models.RunIDField), runID).
		First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List retrieves runs newest first
func (r *RunRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Run, error) {
	limit := models.DefaultLimit
	query := r.db.WithContext(ctx).Order("id DESC")
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if opts.Offset > 0 {
			query = query.Offset(opts.Offset)
		}
		if opts.Status != nil {
			query = query.Where(fmt.Sprintf("%s = ?", models.RunStatusField), *opts.Status)
		}
		if opts.ValidationInstance != "" {
			query = query.Where(fmt.Sprintf("%s = ?", models.RunInstanceField), opts.ValidationInstance)
		}
	}

	var runs []models.Run
	err := query.Limit(limit).Find(&runs).Error
	return runs, err
}

// MarkRunning moves a run to running and stamps its start time
func (r *RunRepository) MarkRunning(ctx context.Context, runID string, at time.Time) error {
	return r.update(ctx, runID, map[string]interface{}{
		models.RunStatusField: models.RunStatusRunning,
		"started_at":          at,
	})
}

// Finish stores the final status and outcome details of a run
func (r *RunRepository) Finish(ctx context.Context, runID string, status models.RunStatus, promotedImage, skipReason, errText string, at time.Time) error {
	if !status.IsFinal() {
		return fmt.Errorf("cannot finish run %s with status %s", runID, status)
	}
	return r.update(ctx, runID, map[string]interface{}{
		models.RunStatusField: status,
		"promoted_image":      promotedImage,
		"skip_reason":         skipReason,
		"error":               errText,
		"finished_at":         at,
	})
}

func (r *RunRepository) update(ctx context.Context, runID string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Run{}).
		Where(fmt.Sprintf("%s = ?", models.RunIDField), runID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
