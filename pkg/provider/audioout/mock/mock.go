// Package mock provides a test double for the audioout.Player interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxrun/assistant/pkg/provider/audioout"
)

// Player is a mock implementation of audioout.Player.
type Player struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by every Play call.
	Err error

	// Played records every path passed to Play, in order.
	Played []string
}

// Play records path and returns Err.
func (p *Player) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, path)
	return p.Err
}

// Ensure Player implements audioout.Player at compile time.
var _ audioout.Player = (*Player)(nil)
