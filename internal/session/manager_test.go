package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockCanceller records CancelAction invocations for assertions. done, when
// non-nil, is returned from ActionDone for every domain so tests can control
// exactly when the "task" appears to finish observing cancellation.
type mockCanceller struct {
	mu    sync.Mutex
	calls []string
	done  <-chan struct{}
}

func (m *mockCanceller) CancelAction(ctx context.Context, sessionID, domain, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sessionID+"/"+domain)
	return nil
}

func (m *mockCanceller) ActionDone(sessionID, domain string) (<-chan struct{}, bool) {
	if m.done == nil {
		return nil, false
	}
	return m.done, true
}

func (m *mockCanceller) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockSink records session lifecycle events.
type mockSink struct {
	mu       sync.Mutex
	created  []string
	evicted  []string
}

func (s *mockSink) SessionCreated(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, id)
}

func (s *mockSink) SessionEvicted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evicted = append(s.evicted, id)
}

func TestGetOrCreateUniqueness(t *testing.T) {
	m := NewManager(ManagerConfig{})
	a := m.GetOrCreate("kitchen_session")
	b := m.GetOrCreate("kitchen_session")
	if a != b {
		t.Fatal("expected the same *UnifiedContext for the same session_id")
	}
	c := m.GetOrCreate("living_room_session")
	if a == c {
		t.Fatal("expected distinct contexts for distinct session ids")
	}
	if m.Count() != 2 {
		t.Fatalf("expected 2 tracked sessions, got %d", m.Count())
	}
}

func TestRoomFromSessionIDRule(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		want      string
	}{
		{"plain room", "kitchen_session", "kitchen"},
		{"no suffix", "kitchen", ""},
		{"trailing digits in last 8 chars", "device42_session", ""},
		{"digits further back do not disqualify", "42kitchenroom_session", "42kitchenroom"},
		{"empty prefix", "_session", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roomFromSessionID(tt.sessionID)
			if got != tt.want {
				t.Fatalf("roomFromSessionID(%q) = %q, want %q", tt.sessionID, got, tt.want)
			}
		})
	}
}

func TestGetWithRequestInfoPrecedence(t *testing.T) {
	m := NewManager(ManagerConfig{})

	// Session-id-derived room wins when ClientID is absent.
	c := m.GetWithRequestInfo(RequestContext{
		SessionID: "kitchen_session",
		Language:  "en",
		DeviceContext: map[string]any{
			"room_name": "Kitchen Display",
		},
	})
	if c.ClientID() != "kitchen" {
		t.Fatalf("expected session-id-derived room as client id, got %q", c.ClientID())
	}
	if c.RoomName() != "Kitchen Display" {
		t.Fatalf("expected room_name enriched from device context, got %q", c.RoomName())
	}

	// An explicit ClientID takes precedence and must not be overwritten later.
	c2 := m.GetWithRequestInfo(RequestContext{
		SessionID: "office_session",
		ClientID:  "explicit-client",
	})
	if c2.ClientID() != "explicit-client" {
		t.Fatalf("expected explicit client id to win, got %q", c2.ClientID())
	}
	// Re-enrich without explicit ClientID must not clobber it (priority floor).
	m.GetWithRequestInfo(RequestContext{SessionID: "office_session"})
	if c2.ClientID() != "explicit-client" {
		t.Fatalf("priority floor violated: client id changed to %q", c2.ClientID())
	}
}

func TestSessionEvictionCancelsActions(t *testing.T) {
	canceller := &mockCanceller{}
	sink := &mockSink{}
	m := NewManager(ManagerConfig{
		SessionTimeout:  10 * time.Millisecond,
		CleanupInterval: 5 * time.Millisecond,
		Canceller:       canceller,
		Events:          sink,
	})

	c := m.GetOrCreate("kitchen_session")
	now := time.Now()
	if err := c.StartActiveAction("timers", ActiveAction{Action: "set", StartedAt: now}, now); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		if canceller.callCount() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if canceller.callCount() == 0 {
		t.Fatal("expected active action to be cancelled on eviction")
	}

	if _, ok := m.Get("kitchen_session"); ok {
		t.Fatal("expected evicted session removed from the manager")
	}

	fresh := m.GetOrCreate("kitchen_session")
	if len(fresh.ActiveActions()) != 0 {
		t.Fatal("expected a fresh context after eviction to have no active actions")
	}
}

func TestSessionEvictionWaitsForGracePeriod(t *testing.T) {
	finish := make(chan struct{})
	canceller := &mockCanceller{done: finish}
	sink := &mockSink{}
	m := NewManager(ManagerConfig{
		SessionTimeout:      10 * time.Millisecond,
		CleanupInterval:     5 * time.Millisecond,
		EvictionGracePeriod: 200 * time.Millisecond,
		Canceller:           canceller,
		Events:              sink,
	})

	c := m.GetOrCreate("kitchen_session")
	now := time.Now()
	if err := c.StartActiveAction("timers", ActiveAction{Action: "set", StartedAt: now}, now); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	// The task observes cancellation shortly after eviction starts, well
	// within the grace period.
	time.AfterFunc(20*time.Millisecond, func() { close(finish) })

	deadline := time.Now().Add(900 * time.Millisecond)
	for time.Now().Before(deadline) {
		if canceller.callCount() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if canceller.callCount() == 0 {
		t.Fatal("expected active action to be cancelled on eviction")
	}

	// The session should still be removed once the grace period is
	// satisfied, not left dangling forever.
	deadline = time.Now().Add(900 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, ok := m.Get("kitchen_session"); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected evicted session removed once the in-flight action finished within the grace period")
}

func TestEstimateMemoryUnknownSession(t *testing.T) {
	m := NewManager(ManagerConfig{})
	mb := m.EstimateMemory("nonexistent_session")
	if mb.Total != 0 {
		t.Fatalf("expected zero memory breakdown for unknown session, got %+v", mb)
	}
}
