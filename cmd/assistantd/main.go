// Command assistantd boots the assistant runtime core from a YAML config
// document and drives its pipeline orchestrator against a minimal
// stdin-based frame source. The real audio transport (a mic capture daemon,
// a WebSocket gateway, whatever fronts this process in production) is out
// of scope for this core; reading raw PCM16LE from stdin exists purely so
// the orchestrator has something to run against.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxrun/assistant/internal/app"
	"github.com/voxrun/assistant/internal/audio"
	"github.com/voxrun/assistant/internal/config"
	"github.com/voxrun/assistant/internal/observe"
	"github.com/voxrun/assistant/internal/session"
	"github.com/voxrun/assistant/pkg/audioframe"
)

// frameChunkBytes is 20ms of 16kHz mono 16-bit PCM: 320 samples * 2 bytes.
const frameChunkBytes = 640

func main() {
	configPath := flag.String("config", "config.yaml", "path to the assistant runtime's YAML config document")
	sessionID := flag.String("session", "cli", "session_id to scope the stdin stream under")
	roomName := flag.String("room", "default", "room_name attached to the stdin stream's request context")
	flag.Parse()

	if err := run(*configPath, *sessionID, *roomName); err != nil {
		slog.Error("assistantd: fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath, sessionID, roomName string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("assistantd: load config: %w", err)
	}

	setupLogging(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "assistantd"})
	if err != nil {
		return fmt.Errorf("assistantd: init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("assistantd: telemetry shutdown", "err", err)
		}
	}()

	a, err := app.New(ctx, *cfg, app.Providers{})
	if err != nil {
		return fmt.Errorf("assistantd: build app: %w", err)
	}

	a.ServeAmbientHTTP(ctx, cfg.Server.MetricsAddr)

	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(ctx) }()

	streamDone := make(chan error, 1)
	go func() { streamDone <- streamStdin(ctx, a, sessionID, roomName) }()

	var streamErr error
	select {
	case <-ctx.Done():
	case streamErr = <-streamDone:
		slog.Info("assistantd: stdin stream ended", "err", streamErr)
		stop()
	}

	<-runDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("assistantd: shutdown: %w", err)
	}
	return streamErr
}

// streamStdin reads raw PCM16LE audio from stdin in frameChunkBytes chunks,
// feeding each as an audio.Frame to the pipeline's audio-stream entry point
// until stdin is exhausted or ctx is cancelled.
func streamStdin(ctx context.Context, a *app.App, sessionID, roomName string) error {
	frames := make(chan audio.Frame, 16)

	go func() {
		defer close(frames)
		buf := make([]byte, frameChunkBytes)
		for {
			n, err := io.ReadFull(os.Stdin, buf)
			if n > 0 {
				samples := audioframe.PCM16LEToFloat32(buf[:n])
				select {
				case frames <- audio.Frame{Samples: samples, Timestamp: time.Now()}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	req := session.RequestContext{
		Source:    "cli",
		SessionID: sessionID,
		RoomName:  roomName,
	}

	results, err := a.Pipeline().RunAudioStream(ctx, req, frames)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Text != "" {
			slog.Info("assistantd: intent result", "intent", r.IntentName, "text", r.Text, "success", r.Success)
		}
	}
	return nil
}

func setupLogging(level config.LogLevel) {
	var slogLevel slog.Level
	switch level {
	case config.LogLevelDebug:
		slogLevel = slog.LevelDebug
	case config.LogLevelWarn:
		slogLevel = slog.LevelWarn
	case config.LogLevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
}
