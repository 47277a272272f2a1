// Package exec implements audioout.Player by shelling out to a configured
// system audio player binary (e.g. "aplay", "afplay", "ffplay"). This is a
// deliberately thin adapter: no voice-channel platform from the example pack
// applies here (Discord/WebRTC connectivity is out of scope), so playback is
// whatever the host OS already provides rather than a bundled mixer.
package exec

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/voxrun/assistant/pkg/provider/audioout"
)

// Player runs an external command to play a file.
type Player struct {
	command string
	args    []string
}

// Option configures a Player.
type Option func(*Player)

// WithArgs sets extra arguments inserted before the file path argument.
func WithArgs(args ...string) Option {
	return func(p *Player) { p.args = args }
}

// New builds a Player that invokes command (looked up on PATH) with args
// followed by the file path to play.
func New(command string, opts ...Option) *Player {
	p := &Player{command: command}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Play runs the configured command against path and waits for it to exit.
func (p *Player) Play(ctx context.Context, path string) error {
	args := append(append([]string{}, p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audioout/exec: %s: %w", p.command, err)
	}
	return nil
}

// Ensure Player implements audioout.Player at compile time.
var _ audioout.Player = (*Player)(nil)
