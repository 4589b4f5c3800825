// Package scheduler rotates the audit log on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"whatsflow/pkg/logger"
)

// Job statuses
const (
	JobStatusScheduled = "scheduled"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Error variables
var (
	ErrInvalidSpec = errors.New("invalid cron spec")
	ErrNoTarget    = errors.New("no rotation target")
)

// Rotator closes the current audit file and starts a new one.
type Rotator interface {
	Rotate() error
}

// JobStatus is a snapshot of the rotation job.
type JobStatus struct {
	Spec      string    `json:"spec"`
	Status    string    `json:"status"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// AuditRotator runs audit log rotation in the configured timezone.
type AuditRotator struct {
	cron    *cron.Cron
	spec    string
	target  Rotator
	log     *zap.Logger
	entryID cron.EntryID

	mu      sync.RWMutex
	status  string
	lastRun time.Time
	lastErr error
}

// NewAuditRotator validates spec and schedules rotation of target.
func NewAuditRotator(spec string, loc *time.Location, target Rotator, log *zap.Logger) (*AuditRotator, error) {
	if target == nil {
		return nil, ErrNoTarget
	}
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	cl := cronLogger{log: log.Named("cron")}
	ar := &AuditRotator{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec:   spec,
		target: target,
		log:    log,
		status: JobStatusScheduled,
	}

	id, err := ar.cron.AddFunc(spec, ar.RunNow)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSpec, spec, err)
	}
	ar.entryID = id

	return ar, nil
}

// Start starts the cron scheduler in its own goroutine.
func (ar *AuditRotator) Start() {
	ar.log.Info("Starting audit rotation scheduler", zap.String("cron", ar.spec))
	ar.cron.Start()
	ar.log.Info("Audit rotation scheduled", zap.Time("next_run", ar.cron.Entry(ar.entryID).Next))
}

// Stop stops the scheduler and waits for a running rotation to finish or
// for ctx to expire.
func (ar *AuditRotator) Stop(ctx context.Context) error {
	ar.log.Info("Shutting down audit rotation scheduler")

	cronCtx := ar.cron.Stop()
	select {
	case <-cronCtx.Done():
		return nil
	case <-ctx.Done():
		ar.log.Warn("Audit rotation shutdown timeout, rotation may still be running")
		return ctx.Err()
	}
}

// RunNow rotates the audit log immediately and records the outcome.
func (ar *AuditRotator) RunNow() {
	ar.setStatus(JobStatusRunning, nil)

	started := time.Now()
	err := ar.target.Rotate()
	if err != nil {
		ar.setStatus(JobStatusFailed, err)
		ar.log.Error("Audit log rotation failed", zap.Error(err))
		return
	}

	ar.setStatus(JobStatusCompleted, nil)
	ar.log.Info("Audit log rotated",
		logger.SecurityEventField(logger.SecurityEvent{
			Type:  logger.EventAuditRotated,
			Extra: map[string]any{"duration": time.Since(started).String()},
		}),
	)
}

// Status returns a snapshot of the rotation job.
func (ar *AuditRotator) Status() JobStatus {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	js := JobStatus{
		Spec:    ar.spec,
		Status:  ar.status,
		NextRun: ar.cron.Entry(ar.entryID).Next,
		LastRun: ar.lastRun,
	}
	if ar.lastErr != nil {
		js.LastError = ar.lastErr.Error()
	}
	return js
}

func (ar *AuditRotator) setStatus(status string, err error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	ar.status = status
	if status != JobStatusRunning {
		ar.lastRun = time.Now()
		ar.lastErr = err
	}
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
