package mailsync

import (
	"context"
	"errors"
	"sync"
)

// ErrSyncInProgress is returned when a sync is requested for an account
// that already has one running.
var ErrSyncInProgress = errors.New("sync already in progress for account")

// Task is the handle for one background sync run. Done is closed when the
// run finishes; Report and Err are valid after that.
type Task struct {
	AccountID int64

	done   chan struct{}
	report *Report
}

// Done returns a channel closed when the run has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Report returns the run's report, or nil while the run is in progress.
func (t *Task) Report() *Report {
	select {
	case <-t.done:
		return t.report
	default:
		return nil
	}
}

// Err returns the account-level error of a finished run, nil while running.
func (t *Task) Err() error {
	if report := t.Report(); report != nil {
		return report.Err
	}
	return nil
}

// accountSyncer is the slice of Service the runner drives.
type accountSyncer interface {
	SyncAccount(ctx context.Context, accountID int64) *Report
}

// Runner starts background sync runs and refuses overlap: at most one run
// per account at a time.
type Runner struct {
	service accountSyncer

	mu      sync.Mutex
	running map[int64]*Task
}

func NewRunner(service accountSyncer) *Runner {
	return &Runner{
		service: service,
		running: make(map[int64]*Task),
	}
}

// Run starts a background sync for the account and returns its handle. A
// second call while the first run is still going returns ErrSyncInProgress
// along with the running task.
func (r *Runner) Run(ctx context.Context, accountID int64) (*Task, error) {
	r.mu.Lock()
	if existing, ok := r.running[accountID]; ok {
		r.mu.Unlock()
		return existing, ErrSyncInProgress
	}

	task := &Task{AccountID: accountID, done: make(chan struct{})}
	r.running[accountID] = task
	r.mu.Unlock()

	go func() {
		task.report = r.service.SyncAccount(ctx, accountID)

		r.mu.Lock()
		delete(r.running, accountID)
		r.mu.Unlock()

		close(task.done)
	}()

	return task, nil
}

// Running reports whether the account currently has a sync run going.
func (r *Runner) Running(accountID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[accountID]
	return ok
}
