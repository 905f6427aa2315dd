package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("job run already in progress")

// a STARTED run older than this is assumed crashed and may be taken over
const jobRunStaleAfter = 5 * time.Minute

// JobRun identifies one execution of a background job for a company, e.g. the
// compliance notifications of one day or one due time of a scheduled report.
type JobRun struct {
	CompanyId string
	Job       string
	RunId     string
}

func (r JobRun) scope(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.IdempotencyKey{}).
		Where("company_id = ? AND handler_name = ? AND message_id = ?", r.CompanyId, r.Job, r.RunId)
}

// Begin claims the run. skip is true when the run already succeeded.
func (r JobRun) Begin(tx *gorm.DB) (skip bool, err error) {
	key := models.IdempotencyKey{
		CompanyId:   r.CompanyId,
		HandlerName: r.Job,
		MessageId:   r.RunId,
		Status:      models.IdempotencyStatusStarted,
	}
	err = tx.Create(&key).Error
	if err == nil {
		return false, nil
	}
	if !models.IsDuplicateKeyError(err) {
		return false, err
	}

	var existing models.IdempotencyKey
	if err := r.scope(tx).First(&existing).Error; err != nil {
		return false, err
	}
	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return true, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < jobRunStaleAfter {
			return false, ErrIdempotencyInProgress
		}
	}
	// failed or stale: retry
	return false, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func (r JobRun) Succeeded(tx *gorm.DB) error {
	return r.scope(tx).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "last_error": nil}).Error
}

func (r JobRun) Failed(tx *gorm.DB, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.scope(tx).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}

// jobLedger tracks job runs. Commit stores the run's notifications and marks
// it succeeded atomically, so a failed run leaves nothing behind to resend.
type jobLedger interface {
	Begin(ctx context.Context, run JobRun) (skip bool, err error)
	Commit(ctx context.Context, run JobRun, notices []finance.NotificationRequest) error
	Fail(ctx context.Context, run JobRun, cause error) error
}

type gormJobLedger struct{}

func (gormJobLedger) Begin(ctx context.Context, run JobRun) (bool, error) {
	return run.Begin(config.GetDB().WithContext(ctx))
}

func (gormJobLedger) Commit(ctx context.Context, run JobRun, notices []finance.NotificationRequest) error {
	return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := finance.EmitAll(ctx, models.NotificationEmitter{DB: tx}, notices); err != nil {
			return err
		}
		return run.Succeeded(tx)
	})
}

func (gormJobLedger) Fail(ctx context.Context, run JobRun, cause error) error {
	return run.Failed(config.GetDB().WithContext(ctx), cause)
}

// noticeBuffer holds a run's notifications until the run commits.
type noticeBuffer struct {
	notices []finance.NotificationRequest
}

func (b *noticeBuffer) Emit(ctx context.Context, req finance.NotificationRequest) error {
	b.notices = append(b.notices, req)
	return nil
}
