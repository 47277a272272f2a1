package adapter

import (
	"context"

	"github.com/voxrun/assistant/pkg/provider/audioout"
)

// AudioOutput implements pipeline.AudioOutput by delegating straight to an
// audioout.Player; the two interfaces are already identically shaped, so
// this adapter exists purely to keep internal/pipeline from importing
// pkg/provider/audioout directly.
type AudioOutput struct {
	player audioout.Player
}

// NewAudioOutput builds an AudioOutput backed by player.
func NewAudioOutput(player audioout.Player) *AudioOutput {
	return &AudioOutput{player: player}
}

// Play delegates to the wrapped Player.
func (a *AudioOutput) Play(ctx context.Context, path string) error {
	return a.player.Play(ctx, path)
}
