package session

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/voxrun/assistant/internal/apperr"
)

// ActionCanceller is implemented by the fire-and-forget engine. The context
// manager calls CancelAction for every active-action entry of a session being
// evicted, then ActionDone to wait out the eviction grace period for that
// same action to actually observe the cancellation.
type ActionCanceller interface {
	CancelAction(ctx context.Context, sessionID, domain, reason string) error
	ActionDone(sessionID, domain string) (<-chan struct{}, bool)
}

// DefaultEvictionGracePeriod is how long evictSession waits for an
// in-flight fire-and-forget action to observe cancellation before detaching
// it anyway and logging a warning.
const DefaultEvictionGracePeriod = 2 * time.Second

// EventSink receives lifecycle events the manager emits. Transport of these
// events (to a dashboard, a metrics backend) is out of scope; components only
// emit.
type EventSink interface {
	SessionEvicted(sessionID string)
	SessionCreated(sessionID string)
}

// noopSink is the default EventSink when none is configured.
type noopSink struct{}

func (noopSink) SessionEvicted(string) {}
func (noopSink) SessionCreated(string) {}

// ManagerConfig configures a ContextManager. Zero values fall back to the
// package defaults documented on each field below.
type ManagerConfig struct {
	SessionTimeout  time.Duration // default 30m
	CleanupInterval time.Duration // default 5m
	MaxHistory      int           // default 10
	MaxRecentAction int           // default 20
	MaxFailedAction int           // default 50

	// EvictionGracePeriod bounds how long eviction waits for an in-flight
	// fire-and-forget action to observe cancellation before detaching it.
	// Default DefaultEvictionGracePeriod (2s).
	EvictionGracePeriod time.Duration

	Canceller ActionCanceller // optional
	Events    EventSink       // optional
}

// ContextManager owns all UnifiedContext instances for the process, keyed by
// session_id. It lazily creates contexts, enriches them from transport
// metadata, and periodically evicts idle ones.
//
// The session table uses a single lock for lookup/insertion of a session_id;
// per-context state mutation uses each UnifiedContext's own critical section,
// so distinct sessions never contend with each other and eviction never
// blocks a writer working on a live session.
type ContextManager struct {
	bounds      contextBounds
	timeout     time.Duration
	interval    time.Duration
	gracePeriod time.Duration
	canceller   ActionCanceller
	events      EventSink

	mu       sync.Mutex
	sessions map[string]*UnifiedContext

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewManager constructs a ContextManager with the given configuration.
func NewManager(cfg ManagerConfig) *ContextManager {
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	gracePeriod := cfg.EvictionGracePeriod
	if gracePeriod <= 0 {
		gracePeriod = DefaultEvictionGracePeriod
	}
	bounds := contextBounds{
		maxHistory:      orDefault(cfg.MaxHistory, DefaultMaxHistory),
		maxRecentAction: orDefault(cfg.MaxRecentAction, DefaultMaxRecentAction),
		maxFailedAction: orDefault(cfg.MaxFailedAction, DefaultMaxFailedAction),
	}
	events := cfg.Events
	if events == nil {
		events = noopSink{}
	}
	return &ContextManager{
		bounds:      bounds,
		timeout:     timeout,
		interval:    interval,
		gracePeriod: gracePeriod,
		canceller:   cfg.Canceller,
		events:      events,
		sessions:    make(map[string]*UnifiedContext),
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// GetOrCreate returns the context for sessionID, creating it if absent.
// Two non-concurrent calls with the same sessionID return the same object
// until eviction.
func (m *ContextManager) GetOrCreate(sessionID string) *UnifiedContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[sessionID]; ok {
		return c
	}
	c := newUnifiedContext(sessionID, m.bounds, time.Now())
	m.sessions[sessionID] = c
	m.events.SessionCreated(sessionID)
	return c
}

// sessionSuffix is the conventional session-id suffix.
const sessionSuffix = "_session"

var hasDigit = regexp.MustCompile(`[0-9]`)

// roomFromSessionID implements the room-extraction rule: if a session-id ends
// with "_session" and the prefix contains no digits in its last 8 characters,
// the prefix is treated as a room id.
func roomFromSessionID(sessionID string) string {
	if !strings.HasSuffix(sessionID, sessionSuffix) {
		return ""
	}
	prefix := strings.TrimSuffix(sessionID, sessionSuffix)
	if prefix == "" {
		return ""
	}
	tail := prefix
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	if hasDigit.MatchString(tail) {
		return ""
	}
	return prefix
}

// GetWithRequestInfo returns (creating if needed) the context for
// req.SessionID, then enriches it from req.
//
// Room extraction precedence: explicit req.ClientID > session-id-derived
// room > req.DeviceContext["room_name"]. Enrichment never overwrites
// an already-set context value with a weaker one (the "priority floor").
func (m *ContextManager) GetWithRequestInfo(req RequestContext) *UnifiedContext {
	c := m.GetOrCreate(req.SessionID)

	clientID := req.ClientID
	if clientID == "" {
		clientID = roomFromSessionID(req.SessionID)
	}
	if clientID == "" && req.DeviceContext != nil {
		if v, ok := req.DeviceContext["room_name"].(string); ok {
			clientID = v
		}
	}

	roomName := req.RoomName
	if roomName == "" && req.DeviceContext != nil {
		if v, ok := req.DeviceContext["room_name"].(string); ok {
			roomName = v
		}
	}

	var devices []Device
	if req.DeviceContext != nil {
		if raw, ok := req.DeviceContext["available_devices"].([]Device); ok {
			devices = raw
		}
	}

	c.enrich(clientID, roomName, req.Language, devices, req.Metadata, time.Now())
	return c
}

// Get returns the context for sessionID without creating it. ok is false if
// no such session exists.
func (m *ContextManager) Get(sessionID string) (*UnifiedContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[sessionID]
	return c, ok
}

// Count returns the number of live sessions.
func (m *ContextManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EstimateMemory returns the memory breakdown for sessionID, or a zero value
// if the session does not exist.
func (m *ContextManager) EstimateMemory(sessionID string) MemoryBreakdown {
	c, ok := m.Get(sessionID)
	if !ok {
		return MemoryBreakdown{}
	}
	return c.EstimateMemory()
}

// Start begins the periodic eviction task. Safe to call once; a second call
// before Stop is a no-op.
func (m *ContextManager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stopCh != nil {
		m.mu.Unlock()
		return
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.evictionLoop(ctx)
}

// Stop cancels the eviction task and awaits it.
func (m *ContextManager) Stop() {
	m.mu.Lock()
	stopCh := m.stopCh
	doneCh := m.doneCh
	m.stopCh = nil
	m.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (m *ContextManager) evictionLoop(ctx context.Context) {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.evictOnce(ctx)
		}
	}
}

// evictOnce enumerates sessions without blocking writers (it only holds the
// table lock to snapshot, not while cancelling actions or invoking the event
// sink) and removes every session idle past the timeout. A cleanup failure
// for one session never aborts the tick.
func (m *ContextManager) evictOnce(ctx context.Context) {
	now := time.Now()

	m.mu.Lock()
	var expired []*UnifiedContext
	for _, c := range m.sessions {
		if now.Sub(c.LastActivity()) > m.timeout {
			expired = append(expired, c)
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		m.evictSession(ctx, c)
	}
}

func (m *ContextManager) evictSession(ctx context.Context, c *UnifiedContext) {
	sessionID := c.SessionID()

	if m.canceller != nil {
		var pending []<-chan struct{}
		for domain := range c.ActiveActions() {
			if err := m.canceller.CancelAction(ctx, sessionID, domain, "session evicted"); err != nil {
				slog.Warn("session: cleanup failed to cancel active action",
					"session_id", sessionID, "domain", domain,
					"err", apperr.Wrap(apperr.ErrContextEviction, err, "cancel action on evict"))
				continue
			}
			if done, ok := m.canceller.ActionDone(sessionID, domain); ok {
				pending = append(pending, done)
			}
		}
		m.awaitGracePeriod(sessionID, pending)
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	m.events.SessionEvicted(sessionID)
	slog.Info("session: evicted idle session", "session_id", sessionID)
}

// awaitGracePeriod waits up to m.gracePeriod for every channel in pending to
// close, logging a "detached" warning for whichever are still running once
// the grace period elapses.
func (m *ContextManager) awaitGracePeriod(sessionID string, pending []<-chan struct{}) {
	if len(pending) == 0 {
		return
	}

	finished := make(chan struct{}, len(pending))
	for _, done := range pending {
		done := done
		go func() {
			<-done
			finished <- struct{}{}
		}()
	}

	timer := time.NewTimer(m.gracePeriod)
	defer timer.Stop()

	remaining := len(pending)
	for remaining > 0 {
		select {
		case <-finished:
			remaining--
		case <-timer.C:
			slog.Warn("session: grace period elapsed, detaching in-flight actions still running",
				"session_id", sessionID, "grace_period", m.gracePeriod, "still_running", remaining)
			return
		}
	}
}
