// Package fireforget implements the background task engine: a
// handler-selected operation runs detached from the request that started
// it, tracked in the originating room's UnifiedContext via a
// single-slot-per-domain active-action registry, with timeout, retry and
// cancellation. Its per-action done channels and its classification-driven
// failure policy mirror internal/resilience's CircuitBreaker.
package fireforget

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/voxrun/assistant/internal/apperr"
	"github.com/voxrun/assistant/internal/session"
)

// DefaultMaxConcurrent bounds how many fire-and-forget tasks may execute
// their task function at once, independent of how many are queued in
// active_actions. Per-domain single-slot tracking already
// limits one action per domain per session; this additionally bounds total
// cross-session concurrency so a burst of start_fire_forget calls across
// many rooms cannot exhaust native-call-backed resources (HTTP clients,
// device connections) all at once.
const DefaultMaxConcurrent = 32

// DefaultTimeout, DefaultRetries and DefaultRetryDelay are
// start_fire_forget's defaults
const (
	DefaultTimeout    = 300 * time.Second
	DefaultRetries    = 0
	DefaultRetryDelay = 1 * time.Second
)

// DefaultCriticalThreshold is the action_error_count[domain] value at or
// above which a {timeout, permission, internal} failure is logged as
// critical.
const DefaultCriticalThreshold = 3

// Task is the handler-selected coroutine run in the background. It must
// honor ctx cancellation (timeout or explicit CancelAction).
type Task func(ctx context.Context) error

// NotificationSink receives completion/failure notifications the engine
// emits; delivery to an external channel (push notification, dashboard) is
// out of scope — components only emit.
type NotificationSink interface {
	ActionCompleted(sessionID, domain, action string)
	ActionFailed(sessionID, domain, action string, class session.ErrorClass, detail string, critical bool)
}

type noopSink struct{}

func (noopSink) ActionCompleted(string, string, string)                                  {}
func (noopSink) ActionFailed(string, string, string, session.ErrorClass, string, bool) {}

// StartOptions configures a single start_fire_forget call. Zero values fall
// back to the engine's configured defaults.
type StartOptions struct {
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	Retryable    func(session.ErrorClass) bool
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	DefaultTimeout    time.Duration
	DefaultRetries    int
	DefaultRetryDelay time.Duration
	CriticalThreshold int
	MaxConcurrent     int64
	Classifier        Classifier
	Sink              NotificationSink
}

// Engine runs fire-and-forget tasks and tracks them in the UnifiedContext
// that started them. One Engine serves the whole process; it holds no
// per-session state beyond the cancel-function table needed to implement
// CancelAction, since the authoritative active-action record lives in each
// UnifiedContext.
type Engine struct {
	defaultTimeout    time.Duration
	defaultRetries    int
	defaultRetryDelay time.Duration
	criticalThreshold int
	classifier        Classifier
	sink              NotificationSink
	sem               *semaphore.Weighted

	mu      sync.Mutex
	running map[taskKey]*runEntry

	wg sync.WaitGroup
}

type taskKey struct {
	sessionID string
	domain    string
}

// runEntry tracks the live cancel func and, once CancelAction has been
// called, the reason recorded for the eventual "cancelled:{reason}" failure
// detail.
type runEntry struct {
	cancel context.CancelFunc
	sctx   *session.UnifiedContext
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	reason    string
}

func (r *runEntry) markCancelled(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	r.reason = reason
}

func (r *runEntry) cancellation() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled, r.reason
}

// New constructs an Engine with cfg's tuning knobs, defaulting any zero
// field.
func New(cfg EngineConfig) *Engine {
	e := &Engine{
		defaultTimeout:    cfg.DefaultTimeout,
		defaultRetries:    cfg.DefaultRetries,
		defaultRetryDelay: cfg.DefaultRetryDelay,
		criticalThreshold: cfg.CriticalThreshold,
		classifier:        cfg.Classifier,
		sink:              cfg.Sink,
		running:           make(map[taskKey]*runEntry),
	}
	if e.defaultTimeout <= 0 {
		e.defaultTimeout = DefaultTimeout
	}
	if e.defaultRetryDelay <= 0 {
		e.defaultRetryDelay = DefaultRetryDelay
	}
	if e.criticalThreshold <= 0 {
		e.criticalThreshold = DefaultCriticalThreshold
	}
	if e.classifier == nil {
		e.classifier = DefaultClassifier
	}
	if e.sink == nil {
		e.sink = noopSink{}
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	e.sem = semaphore.NewWeighted(maxConcurrent)
	return e
}

// ActionMetadata is start_fire_forget's return value: a snapshot of the
// room's active_actions map taken immediately after insertion.
type ActionMetadata struct {
	ActiveActions map[string]session.ActiveAction
}

// Start implements start_fire_forget. It inserts the
// active-action record before returning (insertion happens-before the task
// begins executing user code), then spawns the task and its timeout watcher
// in the background.
func (e *Engine) Start(ctx context.Context, sctx *session.UnifiedContext, domain, actionName string, task Task, opts StartOptions) (ActionMetadata, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = e.defaultRetries
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = e.defaultRetryDelay
	}
	retryable := opts.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	taskID := uuid.NewString()
	now := time.Now()
	if err := sctx.StartActiveAction(domain, session.ActiveAction{
		Domain:    domain,
		Action:    actionName,
		StartedAt: now,
		Status:    session.ActionRunning,
		TaskID:    taskID,
	}, now); err != nil {
		return ActionMetadata{}, err
	}

	key := taskKey{sessionID: sctx.SessionID(), domain: domain}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry := &runEntry{cancel: cancel, sctx: sctx, done: make(chan struct{})}
	e.mu.Lock()
	e.running[key] = entry
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(runCtx, entry, key, sctx, domain, actionName, taskID, task, timeout, retries, retryDelay, retryable)

	return ActionMetadata{ActiveActions: sctx.ActiveActions()}, nil
}

// run drives one task attempt loop (including retries) plus its timeout
// watcher, finishing by moving the domain out of active_actions.
func (e *Engine) run(runCtx context.Context, entry *runEntry, key taskKey, sctx *session.UnifiedContext, domain, actionName, taskID string, task Task, timeout time.Duration, retries int, retryDelay time.Duration, retryable func(session.ErrorClass) bool) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.running, key)
		e.mu.Unlock()
		entry.cancel()
		close(entry.done)
	}()

	startedAt := time.Now()

	for attempt := 0; ; attempt++ {
		if err := e.sem.Acquire(runCtx, 1); err != nil {
			if cancelled, reason := entry.cancellation(); cancelled {
				e.failCancelled(sctx, domain, actionName, startedAt, reason)
			} else {
				e.fail(sctx, domain, actionName, startedAt, session.ErrClassInternal, "context cancelled waiting for a worker slot")
			}
			return
		}
		attemptCtx, attemptCancel := context.WithTimeout(runCtx, timeout)
		err := task(attemptCtx)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		attemptCancel()
		e.sem.Release(1)

		if cancelled, reason := entry.cancellation(); cancelled {
			e.failCancelled(sctx, domain, actionName, startedAt, reason)
			return
		}

		if err == nil && !timedOut {
			e.complete(sctx, domain, actionName, startedAt)
			return
		}

		var class session.ErrorClass
		if timedOut {
			class = session.ErrClassTimeout
			err = apperr.Wrap(apperr.ErrTimeout, err, "action %s.%s timed out after %s", domain, actionName, timeout)
		} else {
			class = e.classifier(err)
		}

		if attempt < retries && retryable(class) {
			select {
			case <-runCtx.Done():
				if cancelled, reason := entry.cancellation(); cancelled {
					e.failCancelled(sctx, domain, actionName, startedAt, reason)
				} else {
					e.fail(sctx, domain, actionName, startedAt, session.ErrClassInternal, "context cancelled during retry backoff")
				}
				return
			case <-time.After(retryDelay * time.Duration(math.Pow(2, float64(attempt)))):
			}
			continue
		}

		e.fail(sctx, domain, actionName, startedAt, class, err.Error())
		return
	}
}

func (e *Engine) complete(sctx *session.UnifiedContext, domain, actionName string, startedAt time.Time) {
	now := time.Now()
	sctx.CompleteActiveAction(domain, session.CompletedAction{
		Domain:      domain,
		Action:      actionName,
		StartedAt:   startedAt,
		CompletedAt: now,
		Success:     true,
	}, now)
	e.sink.ActionCompleted(sctx.SessionID(), domain, actionName)
}

func (e *Engine) fail(sctx *session.UnifiedContext, domain, actionName string, startedAt time.Time, class session.ErrorClass, detail string) {
	now := time.Now()
	sctx.CompleteActiveAction(domain, session.CompletedAction{
		Domain:      domain,
		Action:      actionName,
		StartedAt:   startedAt,
		CompletedAt: now,
		Success:     false,
		ErrorClass:  class,
		ErrorDetail: detail,
	}, now)

	count := sctx.ActionErrorCount(domain)
	critical := isCriticalClass(class) && count >= e.criticalThreshold
	if critical {
		slog.Warn("fire-and-forget action failed critically",
			"session_id", sctx.SessionID(), "domain", domain, "action", actionName,
			"error_class", class, "error_count", count, "detail", detail)
	} else {
		slog.Info("fire-and-forget action failed",
			"session_id", sctx.SessionID(), "domain", domain, "action", actionName,
			"error_class", class, "detail", detail)
	}
	e.sink.ActionFailed(sctx.SessionID(), domain, actionName, class, detail, critical)
}

// failCancelled finalizes an action cancelled via CancelAction: it moves
// into failed_actions with error "cancelled:{reason}".
func (e *Engine) failCancelled(sctx *session.UnifiedContext, domain, actionName string, startedAt time.Time, reason string) {
	now := time.Now()
	detail := "cancelled:" + reason
	sctx.CompleteActiveAction(domain, session.CompletedAction{
		Domain:      domain,
		Action:      actionName,
		StartedAt:   startedAt,
		CompletedAt: now,
		Success:     false,
		ErrorClass:  session.ErrClassInternal,
		ErrorDetail: detail,
	}, now)
	e.sink.ActionFailed(sctx.SessionID(), domain, actionName, session.ErrClassInternal, detail, false)
}

func isCriticalClass(class session.ErrorClass) bool {
	switch class {
	case session.ErrClassTimeout, session.ErrClassPermission, session.ErrClassInternal:
		return true
	default:
		return false
	}
}

// CancelAction implements cancel_action: flips the
// domain's status to cancelling, signals the running task's context, and
// lets run's own completion path move the entry into failed_actions with
// error "cancelled:{reason}" once the task observes cancellation and
// returns.
func (e *Engine) CancelAction(ctx context.Context, sessionID, domain, reason string) error {
	key := taskKey{sessionID: sessionID, domain: domain}
	e.mu.Lock()
	entry, ok := e.running[key]
	e.mu.Unlock()
	if !ok {
		return apperr.New(apperr.ErrHandlerNotFound, "no running fire-and-forget action for session %q domain %q", sessionID, domain)
	}
	entry.sctx.SetActiveActionStatus(domain, session.ActionCancelling)
	entry.markCancelled(reason)
	entry.cancel()
	return nil
}

// ActionDone returns the channel that closes once the running fire-and-forget
// action for sessionID/domain finishes (however it finishes: success,
// failure, or cancellation), and whether one was currently running. A caller
// evicting a session can select on this channel against a grace-period timer
// to give the task a chance to observe cancellation before detaching it.
func (e *Engine) ActionDone(sessionID, domain string) (<-chan struct{}, bool) {
	key := taskKey{sessionID: sessionID, domain: domain}
	e.mu.Lock()
	entry, ok := e.running[key]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	return entry.done, true
}

// Wait blocks until every task the Engine has spawned has finished, so a
// caller's graceful shutdown can rely on no task leaking past process exit.
func (e *Engine) Wait() {
	e.wg.Wait()
}
