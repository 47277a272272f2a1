// Package session implements the unified, room-scoped conversation context
// (UnifiedContext) and the manager that owns its lifecycle (ContextManager).
//
// A UnifiedContext is the single piece of state that flows, unmodified in
// identity, from pipeline entry to handler dispatch: VAD, ASR, the NLU
// cascade, the intent orchestrator, and the fire-and-forget engine all read
// and mutate the same *UnifiedContext for a given session. No component
// constructs its own context.
package session

import (
	"time"
)

// DefaultLanguage is the IETF language tag used when a context is created
// without an explicit language hint.
const DefaultLanguage = "ru"

// Default bounds, overridable via ManagerConfig.
const (
	DefaultMaxHistory      = 10
	DefaultMaxRecentAction = 20
	DefaultMaxFailedAction = 50
	DefaultSessionTimeout  = 30 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// ConversationState enumerates the coarse conversational mode of a session.
type ConversationState string

const (
	StateIdle       ConversationState = "idle"
	StateConversing ConversationState = "conversing"
	StateClarifying ConversationState = "clarifying"
	StateContextual ConversationState = "contextual"
)

// Device describes an available device in a room, as enumerated in
// UnifiedContext.AvailableDevices.
type Device struct {
	ID           string
	Name         string
	Type         string
	Room         string
	Capabilities map[string]any
}

// Interaction is one entry of UnifiedContext.ConversationHistory.
type Interaction struct {
	Timestamp  time.Time
	UserText   string
	Response   string
	IntentName string
	ClientID   string
}

// ActionStatus is the lifecycle status of an entry in ActiveActions.
type ActionStatus string

const (
	ActionRunning    ActionStatus = "running"
	ActionCancelling ActionStatus = "cancelling"
)

// ActiveAction is a single-slot-per-domain record of an in-flight
// fire-and-forget action: at most one entry per domain, present iff the
// background task is unfinished and not cancelled.
type ActiveAction struct {
	Domain    string
	Action    string
	StartedAt time.Time
	Status    ActionStatus
	TaskID    string
	RoomID    string
	SessionID string
}

// ErrorClass classifies a failed fire-and-forget action.
type ErrorClass string

const (
	ErrClassTimeout            ErrorClass = "timeout"
	ErrClassNetwork            ErrorClass = "network"
	ErrClassPermission         ErrorClass = "permission"
	ErrClassServiceUnavailable ErrorClass = "service_unavailable"
	ErrClassValidation         ErrorClass = "validation"
	ErrClassInternal           ErrorClass = "internal"
)

// CompletedAction is an entry in RecentActions (success) or FailedActions
// (failure/cancellation).
type CompletedAction struct {
	Domain      string
	Action      string
	StartedAt   time.Time
	CompletedAt time.Time
	Success     bool
	ErrorClass  ErrorClass
	ErrorDetail string
}

// HandlerContext is per-handler persistent scratch space, e.g. an LLM
// message transcript owned by the conversation handler.
type HandlerContext struct {
	// Messages is an ordered list of role/content turns. If a system message
	// is present it is pinned at index 0 until an explicit
	// ClearHandlerContext(name, false) call.
	Messages []HandlerMessage
	// Extra holds handler-specific scratch fields beyond the message list.
	Extra map[string]any
}

// HandlerMessage is one turn in a HandlerContext's message list.
type HandlerMessage struct {
	Role    string
	Content string
	Name    string
}

// MemoryBreakdown is returned by ContextManager.EstimateMemory; it reports an
// approximate byte count per subfield so a monitoring surface can attribute
// memory pressure to specific session fields.
type MemoryBreakdown struct {
	ConversationHistory int
	HandlerContexts     int
	ActiveActions       int
	RecentActions       int
	FailedActions       int
	Devices             int
	Metadata            int
	Total               int
}
