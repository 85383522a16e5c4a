// Package syncer drains the local sync queue into the remote store.
//
// One drain cycle runs at a time. Entries are pushed in queue order; an
// entity that fails is skipped for the rest of the cycle so its writes stay
// ordered. Failures back off exponentially and are parked after the retry
// policy's maximum attempts.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/metrics"
	"github.com/alexanderramin/arbor/internal/remote"
	"github.com/alexanderramin/arbor/internal/repository"
)

var (
	// ErrDrainInProgress is returned when a drain is requested while another
	// one is running.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrNotAuthenticated means no owner id is known yet.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ConflictMessage is the user-facing text for a discarded local change.
const ConflictMessage = "changes were overwritten by server state"

// Status is a point-in-time view of the engine.
type Status struct {
	State     domain.SyncStatus
	Pending   []string
	Queued    int
	Parked    int
	Online    bool
	LastDrain time.Time
	LastError string
}

// DrainResult counts what one cycle did.
type DrainResult struct {
	Pushed    int
	Conflicts int
	Failed    int
	Parked    int
	Skipped   int
}

type Engine struct {
	queue    repository.SyncQueueRepo
	adapter  remote.Adapter
	logger   *slog.Logger
	notifier Notifier
	policy   RetryPolicy
	interval time.Duration
	now      func() time.Time

	draining atomic.Bool
	online   atomic.Bool
	nudge    chan struct{}

	mu        sync.Mutex
	owner     string
	state     domain.SyncStatus
	pending   []string
	lastDrain time.Time
	lastErr   string
}

// NewEngine builds an engine with the default retry policy and a five
// second drain interval.
func NewEngine(queue repository.SyncQueueRepo, adapter remote.Adapter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		queue:    queue,
		adapter:  adapter,
		logger:   logger,
		notifier: nopNotifier{},
		policy:   DefaultRetryPolicy(),
		interval: 5 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
		nudge:    make(chan struct{}, 1),
		state:    domain.SyncIdle,
	}
}

func (e *Engine) WithRetryPolicy(p RetryPolicy) *Engine {
	e.policy = p
	return e
}

func (e *Engine) WithInterval(d time.Duration) *Engine {
	if d > 0 {
		e.interval = d
	}
	return e
}

func (e *Engine) WithNotifier(n Notifier) *Engine {
	if n == nil {
		n = nopNotifier{}
	}
	e.notifier = n
	return e
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) WithOwner(ownerID string) *Engine {
	e.SetOwner(ownerID)
	return e
}

func (e *Engine) SetOwner(ownerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owner = ownerID
}

func (e *Engine) Owner() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// Online reports the outcome of the last ping or push.
func (e *Engine) Online() bool { return e.online.Load() }

// Nudge asks the run loop for an immediate drain. It never blocks.
func (e *Engine) Nudge() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

// Probe pings the remote and records reachability.
func (e *Engine) Probe(ctx context.Context) bool {
	err := e.adapter.Ping(ctx)
	if err != nil {
		e.logger.Debug("remote unreachable", "error", err)
	}
	e.online.Store(err == nil)
	return err == nil
}

// Status returns the current state and queue counts.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	total, err := e.queue.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	parked, err := e.queue.CountParked(ctx)
	if err != nil {
		return Status{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:     e.state,
		Pending:   append([]string(nil), e.pending...),
		Queued:    total,
		Parked:    parked,
		Online:    e.online.Load(),
		LastDrain: e.lastDrain,
		LastError: e.lastErr,
	}, nil
}

// PendingIDs returns the entity ids of the cycle in flight.
func (e *Engine) PendingIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.pending...)
}

// Retry un-parks an entry and clears its backoff.
func (e *Engine) Retry(ctx context.Context, id int64) error {
	if err := e.queue.Retry(ctx, id); err != nil {
		return fmt.Errorf("retrying queue entry %d: %w", id, err)
	}
	e.Nudge()
	return nil
}

// Run drains on every tick and nudge until ctx is cancelled. Ticks are
// skipped while no owner is known or the remote does not answer a ping.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("sync engine started", "interval", e.interval, "max_attempts", e.policy.MaxAttempts)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync engine stopped")
			return
		case <-ticker.C:
			e.tick(ctx)
		case <-e.nudge:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if e.Owner() == "" {
		e.logger.Debug("skipping drain", "reason", ErrNotAuthenticated)
		return
	}
	if !e.Probe(ctx) {
		return
	}
	if _, err := e.Drain(ctx); err != nil && !errors.Is(err, ErrDrainInProgress) && ctx.Err() == nil {
		e.logger.Error("drain failed", "error", err)
	}
}

// Drain pushes every due entry once.
func (e *Engine) Drain(ctx context.Context) (DrainResult, error) {
	if !e.draining.CompareAndSwap(false, true) {
		return DrainResult{}, ErrDrainInProgress
	}
	defer e.draining.Store(false)

	start := time.Now()
	defer func() { metrics.RecordDrain(time.Since(start)) }()

	var res DrainResult
	entries, err := e.queue.List(ctx)
	if err != nil {
		e.finish(domain.SyncError, err.Error())
		return res, fmt.Errorf("reading sync queue: %w", err)
	}

	live := entries[:0:0]
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Parked {
			live = append(live, entry)
			ids = append(ids, entry.EntityID)
		}
	}
	if len(live) == 0 {
		parked := len(entries)
		e.publishDepth(ctx)
		if parked > 0 {
			e.finish(domain.SyncError, fmt.Sprintf("%d parked entries", parked))
		} else {
			e.finish(domain.SyncIdle, "")
		}
		return res, nil
	}

	e.begin(ids)
	e.logger.Debug("draining sync queue", "entries", len(live))

	now := e.now()
	blocked := map[string]bool{}
	var lastErr string
	for _, entry := range live {
		if ctx.Err() != nil {
			break
		}
		key := string(entry.Table) + ":" + entry.EntityID
		if blocked[key] || !entry.Due(now) {
			blocked[key] = true
			res.Skipped++
			continue
		}

		pushErr := e.push(ctx, entry)
		switch {
		case pushErr == nil:
			res.Pushed++
			e.settle(ctx, entry)
		case errors.Is(pushErr, remote.ErrConflict):
			res.Conflicts++
			e.logger.Warn("remote conflict, local change discarded",
				"table", entry.Table, "entity_id", entry.EntityID, "error", pushErr)
			e.settle(ctx, entry)
			e.notifier.Conflict(entry, pushErr)
		case ctx.Err() != nil:
			// Shutdown mid-push is not a failed attempt.
		default:
			blocked[key] = true
			lastErr = pushErr.Error()
			if e.fail(ctx, entry, pushErr) {
				res.Parked++
			} else {
				res.Failed++
			}
			if errors.Is(pushErr, remote.ErrUnavailable) {
				e.online.Store(false)
				e.logger.Warn("remote unavailable, stopping drain", "error", pushErr)
				e.publishDepth(ctx)
				e.finish(domain.SyncError, lastErr)
				return res, nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		e.finish(domain.SyncError, "drain interrupted: "+err.Error())
		return res, fmt.Errorf("drain interrupted: %w", err)
	}

	parked := e.publishDepth(ctx)
	switch {
	case res.Failed > 0 || res.Parked > 0:
		e.finish(domain.SyncError, lastErr)
	case parked > 0:
		e.finish(domain.SyncError, fmt.Sprintf("%d parked entries", parked))
	case res.Skipped > 0:
		e.finish(domain.SyncError, fmt.Sprintf("%d entries waiting to retry", res.Skipped))
	default:
		e.finish(domain.SyncSaved, "")
	}
	return res, nil
}

func (e *Engine) push(ctx context.Context, entry domain.SyncEntry) error {
	row, err := remote.DecodeRow(entry.Table, entry.Action, entry.Payload)
	if err != nil {
		metrics.RecordPush(string(entry.Table), metrics.ResultInvalid, 0)
		return err
	}

	start := time.Now()
	if entry.Action == domain.ActionDelete {
		err = e.adapter.SoftDelete(ctx, entry.Table, entry.EntityID)
	} else {
		err = e.adapter.Upsert(ctx, row)
	}

	result := metrics.ResultOK
	switch {
	case err == nil:
		e.online.Store(true)
	case errors.Is(err, remote.ErrConflict):
		result = metrics.ResultConflict
	default:
		result = metrics.ResultError
	}
	metrics.RecordPush(string(entry.Table), result, time.Since(start))
	return err
}

// settle removes a pushed entry and any older entries it supersedes. A
// failed revision check means the entry was rewritten during the push and
// stays queued for the next cycle.
func (e *Engine) settle(ctx context.Context, entry domain.SyncEntry) {
	removed, err := e.queue.Remove(ctx, entry.ID, entry.Revision)
	if err != nil {
		e.logger.Error("failed to remove pushed entry", "entry_id", entry.ID, "error", err)
		return
	}
	if !removed {
		e.logger.Debug("entry rewritten during push, keeping it", "entry_id", entry.ID)
	}
	if _, err := e.queue.RemoveSuperseded(ctx, entry.Table, entry.EntityID, entry.ID); err != nil {
		e.logger.Error("failed to remove superseded entries", "entry_id", entry.ID, "error", err)
	}
}

// fail records a failed attempt and reports whether the entry was parked.
// Invalid payloads are parked at once since retrying cannot fix them.
func (e *Engine) fail(ctx context.Context, entry domain.SyncEntry, pushErr error) bool {
	attempts := entry.Attempts + 1
	f := repository.Failure{Attempts: attempts, LastError: pushErr.Error()}
	if errors.Is(pushErr, remote.ErrInvalidRow) || e.policy.ShouldPark(attempts) {
		f.Parked = true
	} else {
		next := e.now().Add(e.policy.Backoff(attempts))
		f.NextAttemptAt = &next
	}

	if err := e.queue.MarkFailed(ctx, entry.ID, f); err != nil {
		e.logger.Error("failed to record push failure", "entry_id", entry.ID, "error", err)
		return false
	}
	if f.Parked {
		metrics.RecordPush(string(entry.Table), metrics.ResultParked, 0)
		e.logger.Warn("queue entry parked",
			"entry_id", entry.ID, "table", entry.Table, "entity_id", entry.EntityID,
			"attempts", attempts, "error", pushErr)
	} else {
		e.logger.Info("push failed, will retry",
			"entry_id", entry.ID, "attempts", attempts, "next_attempt_at", f.NextAttemptAt, "error", pushErr)
	}
	return f.Parked
}

func (e *Engine) publishDepth(ctx context.Context) int {
	total, err := e.queue.Count(ctx)
	if err != nil {
		return 0
	}
	parked, err := e.queue.CountParked(ctx)
	if err != nil {
		return 0
	}
	metrics.SetQueueDepth(total, parked)
	return parked
}

func (e *Engine) begin(ids []string) {
	e.mu.Lock()
	e.pending = ids
	changed := e.state != domain.SyncSaving
	e.state = domain.SyncSaving
	e.mu.Unlock()
	if changed {
		e.notifier.StatusChanged(domain.SyncSaving)
	}
}

func (e *Engine) finish(state domain.SyncStatus, lastErr string) {
	e.mu.Lock()
	e.pending = nil
	e.lastDrain = e.now()
	e.lastErr = lastErr
	changed := e.state != state
	e.state = state
	e.mu.Unlock()
	if changed {
		e.notifier.StatusChanged(state)
	}
}

// MarkError flags a local persistence failure outside a drain.
func (e *Engine) MarkError(err error) {
	e.mu.Lock()
	e.lastErr = err.Error()
	changed := e.state != domain.SyncError
	e.state = domain.SyncError
	e.mu.Unlock()
	if changed {
		e.notifier.StatusChanged(domain.SyncError)
	}
}
