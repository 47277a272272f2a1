package intent

import (
	"strings"
	"time"

	"github.com/voxrun/assistant/internal/session"
)

// contextualDomain is the synthetic domain every contextual intent name is
// prefixed with, e.g. "contextual.stop".
const contextualDomain = "contextual"

// DefaultDomainPriority is the fallback priority
// assigned to a domain with no entry in a PriorityMap.
const DefaultDomainPriority = 0

// PriorityMap assigns a relative priority to domains competing for a
// contextual command; higher wins. Domains absent from the map get
// DefaultDomainPriority.
type PriorityMap map[string]int

func (p PriorityMap) priorityOf(domain string) int {
	if v, ok := p[domain]; ok {
		return v
	}
	return DefaultDomainPriority
}

// isContextual reports whether intentName is a contextual command, i.e. has
// the "contextual." domain prefix.
func isContextual(intentName string) bool {
	domain, _, _ := strings.Cut(intentName, ".")
	return domain == contextualDomain
}

// actionSuffix returns the part of a contextual intent name after the
// domain, e.g. "stop" for "contextual.stop".
func actionSuffix(intentName string) string {
	_, suffix, _ := strings.Cut(intentName, ".")
	return suffix
}

// resolveContextual never reads any context other than sctx (cross-room
// isolation: the caller must always pass the room's own context, never
// borrow another room's).
//
// Returns the rebound intent domain to dispatch to, or nothingActive=true
// (with an empty domain) when active_actions is empty.
func resolveContextual(sctx *session.UnifiedContext, priorities PriorityMap) (domain string, nothingActive bool) {
	active := sctx.ActiveActions()
	if len(active) == 0 {
		return "", true
	}
	if len(active) == 1 {
		for d := range active {
			return d, false
		}
	}

	var winner string
	var winnerPriority int
	var winnerStarted time.Time
	first := true
	for d, a := range active {
		p := priorities.priorityOf(d)
		switch {
		case first:
			winner, winnerPriority, winnerStarted, first = d, p, a.StartedAt, false
		case p > winnerPriority:
			winner, winnerPriority, winnerStarted = d, p, a.StartedAt
		case p == winnerPriority && a.StartedAt.After(winnerStarted):
			winner, winnerStarted = d, a.StartedAt
		}
	}
	return winner, false
}
