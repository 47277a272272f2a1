package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/voxrun/assistant/pkg/provider/wakeword"
	"github.com/voxrun/assistant/pkg/provider/wakeword/mock"
)

func TestWakeWordDetectorReportsDetection(t *testing.T) {
	engine := &mock.Engine{Result: wakeword.Result{Detected: true, Phrase: "hey assistant", Confidence: 0.92}}
	det := NewWakeWordDetector(engine)

	result, err := det.Detect(context.Background(), segmentOf(0.2, -0.2, 0.1))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.Detected || result.Confidence != 0.92 {
		t.Fatalf("result = %+v", result)
	}
	if len(engine.Calls) != 1 {
		t.Fatalf("expected 1 Detect call, got %d", len(engine.Calls))
	}
	if engine.Calls[0].SampleRate != 16000 {
		t.Fatalf("sample rate = %d", engine.Calls[0].SampleRate)
	}
}

func TestWakeWordDetectorPropagatesEngineError(t *testing.T) {
	engine := &mock.Engine{Err: errors.New("model unavailable")}
	det := NewWakeWordDetector(engine, WithWakeWordSampleRate(8000))

	if _, err := det.Detect(context.Background(), segmentOf(0.1)); err == nil {
		t.Fatal("expected error")
	}
}
