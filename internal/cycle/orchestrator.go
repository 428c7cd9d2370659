package cycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nahidhasan98/commit-notifier/internal/dedup"
	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/ledger"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/metrics"
	"github.com/nahidhasan98/commit-notifier/internal/models"
	"github.com/nahidhasan98/commit-notifier/internal/reporter"
)

// LedgerStore loads and persists the commit ledger
type LedgerStore interface {
	Load(ctx context.Context) *ledger.Ledger
	Read() (*ledger.Ledger, error)
	Persist(l *ledger.Ledger) error
}

// Fetcher returns one page of the commit feed, empty on failure
type Fetcher interface {
	Fetch(ctx context.Context, page int) []models.Commit
}

// Formatter builds the notification for a commit
type Formatter interface {
	Format(c models.Commit) models.NotificationMessage
}

// Deliverer sends a notification
type Deliverer interface {
	Deliver(ctx context.Context, msg models.NotificationMessage, c models.Commit) error
}

// Orchestrator runs poll cycles and resends. Only one of them runs at a time.
type Orchestrator struct {
	store     LedgerStore
	fetcher   Fetcher
	formatter Formatter
	notifier  Deliverer
	reporter  reporter.Reporter
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time

	mu sync.Mutex

	resultMu sync.RWMutex
	last     *models.CycleResult
}

// New creates an orchestrator
func New(store LedgerStore, fetcher Fetcher, formatter Formatter, notifier Deliverer,
	rep reporter.Reporter, m *metrics.Metrics, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		fetcher:   fetcher,
		formatter: formatter,
		notifier:  notifier,
		reporter:  rep,
		metrics:   m,
		log:       log.Component("cycle"),
		now:       time.Now,
	}
}

// Run performs a cycle immediately and then on every tick until ctx is done.
// Ticks that arrive while a cycle or a resend holds the lock are skipped.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	o.log.Infof("Polling every %s", interval)
	o.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.RunCycle(ctx)
		case <-ctx.Done():
			o.log.Info("Polling stopped")
			return
		}
	}
}

// RunCycle loads the ledger, fetches the first feed page and delivers every
// commit the ledger does not know yet, in feed order. New commits are
// recorded even when their delivery fails, and the ledger is persisted once
// when anything was added.
func (o *Orchestrator) RunCycle(ctx context.Context) models.CycleResult {
	result := models.CycleResult{
		ID:        uuid.NewString(),
		StartedAt: o.now().Unix(),
	}
	log := o.log.With("cycle_id", result.ID)

	if !o.mu.TryLock() {
		log.Warn("Previous cycle still running, skipping this tick")
		result.Skipped = true
		o.metrics.CycleFinished(metrics.CycleSkipped, 0)
		return result
	}
	defer o.mu.Unlock()

	known := o.store.Load(ctx)
	fetched := o.fetcher.Fetch(ctx, 1)
	fresh := dedup.Diff(fetched, known.Commits())

	result.Fetched = len(fetched)
	result.New = len(fresh)

	if len(fresh) == 0 {
		log.Info("No new commits to add")
		result.LedgerSize = known.Len()
		o.finish(result, metrics.CycleNoChanges)
		return result
	}

	added := 0
	for _, c := range fresh {
		msg := o.formatter.Format(c)
		if err := o.notifier.Deliver(ctx, msg, c); err != nil {
			result.Failed++
			o.reporter.Report(ctx, err, "sending commit to Discord")
		} else {
			result.Delivered++
		}

		if known.Append(c) {
			added++
		}
	}

	if added > 0 {
		if err := o.store.Persist(known); err != nil {
			o.reporter.Report(ctx, err, "saving commits to file")
		} else {
			result.Persisted = true
			log.Infof("Added %d new commit(s) to the ledger", added)
		}
	}

	result.LedgerSize = known.Len()
	if result.Persisted {
		o.finish(result, metrics.CyclePersisted)
	} else {
		o.finish(result, metrics.CycleNoChanges)
	}
	return result
}

// Resend delivers a recorded commit again without touching the ledger. id
// may use either the numeric or the text form of the identifier.
func (o *Orchestrator) Resend(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	known, err := o.store.Read()
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			o.log.Warn("Commits file not found")
			return errors.Wrap(err, errors.ErrCodeCommitNotFound, "Commits file not found")
		}
		o.reporter.Report(ctx, err, "loading commits from file")
		return err
	}

	c, ok := known.FindByID(models.NewFlexID(id))
	if !ok {
		o.log.Warnf("Commit ID %s not found", id)
		return errors.CommitNotFound(id)
	}

	if err := o.notifier.Deliver(ctx, o.formatter.Format(c), c); err != nil {
		o.reporter.Report(ctx, err, fmt.Sprintf("resending commit %s", id))
		return err
	}

	o.log.Infof("Resent commit %s", id)
	return nil
}

// LastResult returns the outcome of the most recent completed cycle
func (o *Orchestrator) LastResult() *models.CycleResult {
	o.resultMu.RLock()
	defer o.resultMu.RUnlock()
	if o.last == nil {
		return nil
	}
	r := *o.last
	return &r
}

func (o *Orchestrator) finish(result models.CycleResult, outcome string) {
	o.metrics.CycleFinished(outcome, result.LedgerSize)

	o.resultMu.Lock()
	o.last = &result
	o.resultMu.Unlock()
}
