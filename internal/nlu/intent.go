// Package nlu implements the cascading natural-language-understanding
// recognizer: an ordered chain of plugins that map normalized
// text plus session context to an Intent, stopping at the first plugin whose
// confidence meets its threshold and falling through to a conversation
// fallback that never fails.
package nlu

import "time"

// Intent is the result of recognizing a piece of text
// Name follows the "{domain}.{action}" convention; Domain and Action are
// derived from Name when not supplied directly.
type Intent struct {
	Name       string
	Domain     string
	Action     string
	Entities   map[string]any
	Confidence float64
	RawText    string
	SessionID  string
	Timestamp  time.Time
	Metadata   map[string]any
}

// DeriveDomainAction fills Domain and Action from Name when they are empty,
// splitting on the first '.'.
func (i *Intent) DeriveDomainAction() {
	if i.Domain != "" && i.Action != "" {
		return
	}
	for idx := 0; idx < len(i.Name); idx++ {
		if i.Name[idx] == '.' {
			if i.Domain == "" {
				i.Domain = i.Name[:idx]
			}
			if i.Action == "" {
				i.Action = i.Name[idx+1:]
			}
			return
		}
	}
	if i.Domain == "" {
		i.Domain = i.Name
	}
}

// IntentResult is the outcome of a handler executing an Intent.
// ActionMetadata may carry an "active_actions" submap when the handler
// started a fire-and-forget task.
type IntentResult struct {
	Text           string
	Success        bool
	ShouldSpeak    bool
	ActionMetadata map[string]any
	Error          error
	Confidence     float64
	IntentName     string
}
