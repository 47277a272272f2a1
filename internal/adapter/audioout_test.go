package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/voxrun/assistant/pkg/provider/audioout/mock"
)

func TestAudioOutputDelegatesToPlayer(t *testing.T) {
	player := &mock.Player{}
	out := NewAudioOutput(player)

	if err := out.Play(context.Background(), "/tmp/response.wav"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(player.Played) != 1 || player.Played[0] != "/tmp/response.wav" {
		t.Fatalf("Played = %v", player.Played)
	}
}

func TestAudioOutputPropagatesPlayerError(t *testing.T) {
	player := &mock.Player{Err: errors.New("no audio device")}
	out := NewAudioOutput(player)

	if err := out.Play(context.Background(), "/tmp/response.wav"); err == nil {
		t.Fatal("expected error")
	}
}
