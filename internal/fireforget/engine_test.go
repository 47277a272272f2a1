package fireforget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxrun/assistant/internal/session"
)

func newCtx(t *testing.T) *session.UnifiedContext {
	t.Helper()
	mgr := session.NewManager(session.ManagerConfig{})
	return mgr.GetOrCreate("room-1")
}

type recordingSink struct {
	completed []string
	failed    []string
	critical  []bool
}

func (s *recordingSink) ActionCompleted(sessionID, domain, action string) {
	s.completed = append(s.completed, domain+"."+action)
}

func (s *recordingSink) ActionFailed(sessionID, domain, action string, class session.ErrorClass, detail string, critical bool) {
	s.failed = append(s.failed, domain+"."+action)
	s.critical = append(s.critical, critical)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStartSucceedsAndCompletes(t *testing.T) {
	sctx := newCtx(t)
	sink := &recordingSink{}
	e := New(EngineConfig{Sink: sink})

	_, err := e.Start(context.Background(), sctx, "timers", "set", func(ctx context.Context) error {
		return nil
	}, StartOptions{})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return len(sink.completed) == 1 })
	if len(sctx.ActiveActions()) != 0 {
		t.Fatal("expected active_actions to be empty after completion")
	}
	recent := sctx.RecentActions()
	if len(recent) != 1 || !recent[0].Success {
		t.Fatalf("expected one successful recent action, got %+v", recent)
	}
}

func TestStartRejectsDuplicateDomain(t *testing.T) {
	sctx := newCtx(t)
	e := New(EngineConfig{})
	block := make(chan struct{})

	_, err := e.Start(context.Background(), sctx, "timers", "set", func(ctx context.Context) error {
		<-block
		return nil
	}, StartOptions{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.Start(context.Background(), sctx, "timers", "set", func(ctx context.Context) error { return nil }, StartOptions{})
	if err == nil {
		t.Fatal("expected DomainBusy error for duplicate domain")
	}
	close(block)
	e.Wait()
}

func TestStartRetriesRetryableFailure(t *testing.T) {
	sctx := newCtx(t)
	sink := &recordingSink{}
	e := New(EngineConfig{Sink: sink})

	var attempts int
	_, err := e.Start(context.Background(), sctx, "music", "play", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return NewTaskError(session.ErrClassNetwork, "transport down", errors.New("dial failed"))
		}
		return nil
	}, StartOptions{Retries: 5, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return len(sink.completed) == 1 })
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestStartExhaustsRetriesAndFails(t *testing.T) {
	sctx := newCtx(t)
	sink := &recordingSink{}
	e := New(EngineConfig{Sink: sink})

	_, err := e.Start(context.Background(), sctx, "music", "play", func(ctx context.Context) error {
		return NewTaskError(session.ErrClassNetwork, "transport down", errors.New("dial failed"))
	}, StartOptions{Retries: 2, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return len(sink.failed) == 1 })
	failedActions := sctx.FailedActions()
	if len(failedActions) != 1 || failedActions[0].ErrorClass != session.ErrClassNetwork {
		t.Fatalf("expected one network failure, got %+v", failedActions)
	}
}

func TestStartNonRetryableFailsImmediately(t *testing.T) {
	sctx := newCtx(t)
	sink := &recordingSink{}
	e := New(EngineConfig{Sink: sink})

	var attempts int
	_, err := e.Start(context.Background(), sctx, "lights", "on", func(ctx context.Context) error {
		attempts++
		return NewTaskError(session.ErrClassValidation, "bad brightness value", nil)
	}, StartOptions{Retries: 5, RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return len(sink.failed) == 1 })
	if attempts != 1 {
		t.Fatalf("expected validation failure to skip retries, got %d attempts", attempts)
	}
}

func TestStartTimeoutClassifiesAsTimeout(t *testing.T) {
	sctx := newCtx(t)
	sink := &recordingSink{}
	e := New(EngineConfig{Sink: sink})

	_, err := e.Start(context.Background(), sctx, "timers", "set", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, StartOptions{Timeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return len(sink.failed) == 1 })
	failedActions := sctx.FailedActions()
	if len(failedActions) != 1 || failedActions[0].ErrorClass != session.ErrClassTimeout {
		t.Fatalf("expected timeout classification, got %+v", failedActions)
	}
}

func TestCancelActionMovesToFailedWithReason(t *testing.T) {
	sctx := newCtx(t)
	sink := &recordingSink{}
	e := New(EngineConfig{Sink: sink})
	started := make(chan struct{})

	_, err := e.Start(context.Background(), sctx, "timers", "set", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, StartOptions{})
	if err != nil {
		t.Fatal(err)
	}
	<-started

	if err := e.CancelAction(context.Background(), sctx.SessionID(), "timers", "user requested stop"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return len(sink.failed) == 1 })
	failedActions := sctx.FailedActions()
	if len(failedActions) != 1 || failedActions[0].ErrorDetail != "cancelled:user requested stop" {
		t.Fatalf("expected cancelled:reason detail, got %+v", failedActions)
	}
}

func TestActionDoneClosesWhenTaskFinishes(t *testing.T) {
	sctx := newCtx(t)
	e := New(EngineConfig{})
	started := make(chan struct{})
	release := make(chan struct{})

	_, err := e.Start(context.Background(), sctx, "timers", "set", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, StartOptions{})
	if err != nil {
		t.Fatal(err)
	}
	<-started

	done, ok := e.ActionDone(sctx.SessionID(), "timers")
	if !ok {
		t.Fatal("expected a running action to report a done channel")
	}
	select {
	case <-done:
		t.Fatal("expected done channel to still be open while the task runs")
	default:
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected done channel to close once the task finished")
	}

	if _, ok := e.ActionDone(sctx.SessionID(), "timers"); ok {
		t.Fatal("expected no running action to report after completion")
	}
}

func TestActionDoneUnknownDomainReportsNotFound(t *testing.T) {
	e := New(EngineConfig{})
	if _, ok := e.ActionDone("nope", "timers"); ok {
		t.Fatal("expected ActionDone to report false for an unknown session/domain")
	}
}

func TestCancelActionUnknownDomainErrors(t *testing.T) {
	e := New(EngineConfig{})
	err := e.CancelAction(context.Background(), "nope", "timers", "reason")
	if err == nil {
		t.Fatal("expected error for unknown session/domain")
	}
}

func TestCriticalFailureFlaggedAfterThreshold(t *testing.T) {
	sctx := newCtx(t)
	sink := &recordingSink{}
	e := New(EngineConfig{Sink: sink, CriticalThreshold: 2})

	failOnce := func() {
		_, err := e.Start(context.Background(), sctx, "timers", "set", func(ctx context.Context) error {
			return NewTaskError(session.ErrClassInternal, "boom", nil)
		}, StartOptions{})
		if err != nil {
			t.Fatal(err)
		}
		waitFor(t, time.Second, func() bool { return len(sink.failed) > 0 && sctx.ActionErrorCount("timers") > 0 })
	}

	failOnce()
	waitFor(t, time.Second, func() bool { return sctx.ActionErrorCount("timers") == 1 })
	sink.failed = nil
	sink.critical = nil
	failOnce()

	if len(sink.critical) != 1 || !sink.critical[0] {
		t.Fatalf("expected second consecutive internal failure to be flagged critical, got %+v", sink.critical)
	}
}
