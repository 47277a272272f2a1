package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/voxrun/assistant/internal/apperr"
)

// RequestContext holds the transport-level facts a single request carries.
// It is immutable; ContextManager.GetWithRequestInfo reads from it but never
// mutates it.
type RequestContext struct {
	Source            string // "api" | "mic" | "ws" | "cli" | ...
	SessionID          string
	ClientID           string
	RoomName           string
	DeviceContext      map[string]any
	Language           string
	WantsAudioResponse bool
	SkipWakeWord       bool
	Metadata           map[string]any
}

// UnifiedContext is the room-scoped session state shared by every pipeline
// component for a given session_id. All mutating methods serialize on an
// internal per-context critical section (mu); distinct contexts never
// contend with each other.
type UnifiedContext struct {
	mu sync.Mutex

	sessionID string

	clientID string
	roomName string
	language string

	clientMetadata    map[string]any
	availableDevices  []Device
	conversationHistory []Interaction
	handlerContexts   map[string]*HandlerContext
	activeActions     map[string]*ActiveAction
	recentActions     []CompletedAction
	failedActions     []CompletedAction
	actionErrorCount  map[string]int
	conversationState ConversationState

	createdAt    time.Time
	lastActivity time.Time

	maxHistory      int
	maxRecentAction int
	maxFailedAction int
}

// newUnifiedContext constructs a fresh context for sessionID. Unexported:
// only a ContextManager creates contexts, enforcing session_id uniqueness.
func newUnifiedContext(sessionID string, bounds contextBounds, now time.Time) *UnifiedContext {
	return &UnifiedContext{
		sessionID:         sessionID,
		language:          DefaultLanguage,
		clientMetadata:    make(map[string]any),
		handlerContexts:   make(map[string]*HandlerContext),
		activeActions:     make(map[string]*ActiveAction),
		actionErrorCount:  make(map[string]int),
		conversationState: StateIdle,
		createdAt:         now,
		lastActivity:      now,
		maxHistory:        bounds.maxHistory,
		maxRecentAction:   bounds.maxRecentAction,
		maxFailedAction:   bounds.maxFailedAction,
	}
}

type contextBounds struct {
	maxHistory      int
	maxRecentAction int
	maxFailedAction int
}

// SessionID returns the stable session key. Safe without locking: immutable
// after construction.
func (c *UnifiedContext) SessionID() string { return c.sessionID }

// touch updates LastActivity monotonically (never decreasing). Must be
// called with mu held.
func (c *UnifiedContext) touch(now time.Time) {
	if now.After(c.lastActivity) {
		c.lastActivity = now
	}
}

// LastActivity returns the last mutation timestamp.
func (c *UnifiedContext) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// CreatedAt returns the creation timestamp.
func (c *UnifiedContext) CreatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createdAt
}

// ClientID returns the room/device identifier, or "" if unset.
func (c *UnifiedContext) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// RoomName returns the human-readable room label, or "" if unset.
func (c *UnifiedContext) RoomName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomName
}

// Language returns the session's IETF language tag.
func (c *UnifiedContext) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// SetLanguage overwrites the session language.
func (c *UnifiedContext) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = lang
}

// ClientMetadata returns a shallow copy of the client metadata map.
func (c *UnifiedContext) ClientMetadata() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.clientMetadata))
	for k, v := range c.clientMetadata {
		out[k] = v
	}
	return out
}

// MergeClientMetadata merges src into the session's client metadata. Existing
// keys are overwritten only when src provides a non-nil value.
func (c *UnifiedContext) MergeClientMetadata(src map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range src {
		if v == nil {
			continue
		}
		c.clientMetadata[k] = v
	}
}

// AvailableDevices returns a copy of the device list.
func (c *UnifiedContext) AvailableDevices() []Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Device, len(c.availableDevices))
	copy(out, c.availableDevices)
	return out
}

// SetAvailableDevices replaces the device list.
func (c *UnifiedContext) SetAvailableDevices(devices []Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.availableDevices = append([]Device(nil), devices...)
}

// ConversationState returns the current conversational mode.
func (c *UnifiedContext) ConversationState() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationState
}

// SetConversationState transitions the conversational mode.
func (c *UnifiedContext) SetConversationState(s ConversationState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationState = s
}

// AppendHistory appends an interaction, evicting the oldest entry if the
// bound (default 10) is exceeded.
func (c *UnifiedContext) AppendHistory(userText, response, intentName string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationHistory = append(c.conversationHistory, Interaction{
		Timestamp:  now,
		UserText:   userText,
		Response:   response,
		IntentName: intentName,
		ClientID:   c.clientID,
	})
	if over := len(c.conversationHistory) - c.maxHistory; over > 0 {
		c.conversationHistory = c.conversationHistory[over:]
	}
	c.touch(now)
}

// ConversationHistory returns a copy of the bounded interaction history,
// oldest first.
func (c *UnifiedContext) ConversationHistory() []Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Interaction, len(c.conversationHistory))
	copy(out, c.conversationHistory)
	return out
}

// HandlerContext returns the named handler's scratch space, creating it
// empty if absent.
func (c *UnifiedContext) HandlerContext(name string) *HandlerContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	hc, ok := c.handlerContexts[name]
	if !ok {
		hc = &HandlerContext{Extra: make(map[string]any)}
		c.handlerContexts[name] = hc
	}
	return hc
}

// AppendHandlerMessage appends a message to the named handler's context,
// preserving ordering. If the first message in the list has Role "system",
// it stays pinned at index 0: a new system message replaces it in place
// rather than being appended after it.
func (c *UnifiedContext) AppendHandlerMessage(handler string, msg HandlerMessage, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hc, ok := c.handlerContexts[handler]
	if !ok {
		hc = &HandlerContext{Extra: make(map[string]any)}
		c.handlerContexts[handler] = hc
	}
	if msg.Role == "system" && len(hc.Messages) > 0 && hc.Messages[0].Role == "system" {
		hc.Messages[0] = msg
	} else if msg.Role == "system" && len(hc.Messages) == 0 {
		hc.Messages = append(hc.Messages, msg)
	} else {
		hc.Messages = append(hc.Messages, msg)
	}
	c.touch(now)
}

// ClearHandlerContext clears the named handler's message list. When
// keepSystem is true and the first message is a system message, it is
// preserved as the sole surviving entry.
func (c *UnifiedContext) ClearHandlerContext(handler string, keepSystem bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hc, ok := c.handlerContexts[handler]
	if !ok {
		return
	}
	if keepSystem && len(hc.Messages) > 0 && hc.Messages[0].Role == "system" {
		hc.Messages = hc.Messages[:1]
		return
	}
	hc.Messages = nil
}

// ActiveActions returns a snapshot of the domain → ActiveAction map.
func (c *UnifiedContext) ActiveActions() map[string]ActiveAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ActiveAction, len(c.activeActions))
	for d, a := range c.activeActions {
		out[d] = *a
	}
	return out
}

// StartActiveAction inserts a new active-action record for domain. Returns
// apperr.ErrDomainBusy if an entry already exists for that domain: the
// caller (fire-and-forget engine) must cancel the prior task first.
func (c *UnifiedContext) StartActiveAction(domain string, a ActiveAction, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.activeActions[domain]; exists {
		return apperr.New(apperr.ErrDomainBusy, "domain %q already has an active action", domain)
	}
	if a.RoomID != c.clientID {
		a.RoomID = c.clientID
	}
	a.SessionID = c.sessionID
	if a.StartedAt.IsZero() {
		a.StartedAt = now
	}
	rec := a
	c.activeActions[domain] = &rec
	c.touch(now)
	return nil
}

// SetActiveActionStatus transitions an existing active action's status (used
// to mark "cancelling" before the task observes cancellation).
func (c *UnifiedContext) SetActiveActionStatus(domain string, status ActionStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.activeActions[domain]
	if !ok {
		return false
	}
	a.Status = status
	return true
}

// CompleteActiveAction removes domain from ActiveActions and appends a
// CompletedAction to either RecentActions (success) or FailedActions
// (failure), each bounded with oldest-first eviction. If the domain is not
// currently active this is a no-op that still records the completion.
func (c *UnifiedContext) CompleteActiveAction(domain string, outcome CompletedAction, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeActions, domain)

	if outcome.Success {
		c.recentActions = append(c.recentActions, outcome)
		if over := len(c.recentActions) - c.maxRecentAction; over > 0 {
			c.recentActions = c.recentActions[over:]
		}
	} else {
		c.failedActions = append(c.failedActions, outcome)
		if over := len(c.failedActions) - c.maxFailedAction; over > 0 {
			c.failedActions = c.failedActions[over:]
		}
		c.actionErrorCount[domain]++
	}
	c.touch(now)
}

// RecentActions returns a copy of the bounded success history.
func (c *UnifiedContext) RecentActions() []CompletedAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CompletedAction, len(c.recentActions))
	copy(out, c.recentActions)
	return out
}

// FailedActions returns a copy of the bounded failure history.
func (c *UnifiedContext) FailedActions() []CompletedAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CompletedAction, len(c.failedActions))
	copy(out, c.failedActions)
	return out
}

// ActionErrorCount returns the failure count recorded for domain.
func (c *UnifiedContext) ActionErrorCount(domain string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actionErrorCount[domain]
}

// enrich applies transport-level facts from a RequestContext, honouring the
// "priority floor" rule: an already-set value is never overwritten by a
// weaker one. room extraction precedence is applied by the caller
// (ContextManager) before invoking enrich, which only merges the final
// decided values.
func (c *UnifiedContext) enrich(clientID, roomName, language string, devices []Device, metadata map[string]any, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clientID == "" && clientID != "" {
		c.clientID = clientID
	}
	if c.roomName == "" && roomName != "" {
		c.roomName = roomName
	}
	if language != "" {
		c.language = language
	}
	if len(devices) > 0 {
		c.availableDevices = append([]Device(nil), devices...)
	}
	for k, v := range metadata {
		if v == nil {
			continue
		}
		c.clientMetadata[k] = v
	}
	c.touch(now)
}

// EstimateMemory returns an approximate per-subfield byte breakdown, used by
// the monitoring surface to attribute memory pressure.
func (c *UnifiedContext) EstimateMemory() MemoryBreakdown {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b MemoryBreakdown
	for _, h := range c.conversationHistory {
		b.ConversationHistory += len(h.UserText) + len(h.Response) + len(h.IntentName) + 48
	}
	for name, hc := range c.handlerContexts {
		b.HandlerContexts += len(name)
		for _, m := range hc.Messages {
			b.HandlerContexts += len(m.Role) + len(m.Content) + len(m.Name)
		}
	}
	for d, a := range c.activeActions {
		b.ActiveActions += len(d) + len(a.Action) + len(a.TaskID) + 64
	}
	for _, a := range c.recentActions {
		b.RecentActions += len(a.Domain) + len(a.Action) + 48
	}
	for _, a := range c.failedActions {
		b.FailedActions += len(a.Domain) + len(a.Action) + len(a.ErrorDetail) + 48
	}
	for _, d := range c.availableDevices {
		b.Devices += len(d.ID) + len(d.Name) + len(d.Type) + len(d.Room) + 32
	}
	for k, v := range c.clientMetadata {
		b.Metadata += len(k) + estimateValueSize(v)
	}
	b.Total = b.ConversationHistory + b.HandlerContexts + b.ActiveActions +
		b.RecentActions + b.FailedActions + b.Devices + b.Metadata
	return b
}

func estimateValueSize(v any) int {
	switch t := v.(type) {
	case string:
		return len(t)
	case fmt.Stringer:
		return len(t.String())
	default:
		return 16
	}
}
