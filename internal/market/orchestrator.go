package market

import (
	"context"
	"log/slog"
	"sync"

	"github.com/serverkit/addonctl/internal/catalog"
)

// Installer installs a single item into the target environment.
type Installer interface {
	Install(ctx context.Context, item catalog.Item) error
}

// InstallerFunc adapts a function to Installer.
type InstallerFunc func(ctx context.Context, item catalog.Item) error

// Install calls f.
func (f InstallerFunc) Install(ctx context.Context, item catalog.Item) error {
	return f(ctx, item)
}

// State is the lifecycle of an install run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Progress reports which item is being installed. Current counts completed
// items and never decreases during a run; Name is empty once all are done.
type Progress struct {
	Current int
	Total   int
	Name    string
	Key     catalog.Key
}

// ProgressFunc receives progress updates. It is called from the goroutine
// running the install.
type ProgressFunc func(Progress)

// InstallReport summarizes a run.
type InstallReport struct {
	Total     int
	Installed []catalog.Item
}

// Orchestrator installs a confirmed list strictly in order, one item at a
// time, and stops at the first failure.
type Orchestrator struct {
	installer  Installer
	onProgress ProgressFunc
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	progress Progress
	lastErr  error
}

// NewOrchestrator returns an idle orchestrator. onProgress may be nil.
func NewOrchestrator(installer Installer, onProgress ProgressFunc, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{installer: installer, onProgress: onProgress, logger: logger}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Progress returns the latest progress value.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Err returns the error of the last failed run.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Run installs items in order. On the first failure it stops, leaves the
// already installed items in place, and returns an *InstallError naming the
// failed item; later items are not attempted.
func (o *Orchestrator) Run(ctx context.Context, items []catalog.Item) (*InstallReport, error) {
	if len(items) == 0 {
		return nil, ErrEmptyConfirmation
	}

	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return nil, ErrInstallInProgress
	}
	o.state = StateRunning
	o.lastErr = nil
	o.mu.Unlock()

	total := len(items)
	report := &InstallReport{Total: total}
	for i, it := range items {
		o.report(Progress{Current: i, Total: total, Name: it.Name(), Key: it.Key()})
		o.logger.Debug("installing", "item", it.Key(), "index", i+1, "total", total)

		err := ctx.Err()
		if err == nil {
			err = o.installer.Install(ctx, it)
		}
		if err != nil {
			ierr := &InstallError{Item: it, Index: i, Completed: i, Total: total, Err: err}
			o.finish(StateFailed, ierr)
			return report, ierr
		}
		report.Installed = append(report.Installed, it)
	}

	o.report(Progress{Current: total, Total: total})
	o.finish(StateSucceeded, nil)
	return report, nil
}

func (o *Orchestrator) report(p Progress) {
	o.mu.Lock()
	o.progress = p
	o.mu.Unlock()
	if o.onProgress != nil {
		o.onProgress(p)
	}
}

func (o *Orchestrator) finish(s State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
	o.lastErr = err
}

// Reset returns a finished orchestrator to idle. It has no effect while a
// run is in progress.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateRunning {
		return
	}
	o.state = StateIdle
	o.progress = Progress{}
	o.lastErr = nil
}
