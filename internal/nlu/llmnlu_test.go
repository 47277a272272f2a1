package nlu

import (
	"context"
	"testing"
)

type stubRecognizer struct {
	name       string
	entities   map[string]any
	confidence float64
	err        error
}

func (s stubRecognizer) RecognizeIntent(ctx context.Context, text string, candidates []string) (string, map[string]any, float64, error) {
	return s.name, s.entities, s.confidence, s.err
}

func TestLLMPluginAcceptsKnownIntent(t *testing.T) {
	reg := newTestRegistry(t)
	snapshot := reg.Current()

	p := NewLLMPlugin(stubRecognizer{name: "timers.stop", confidence: 0.9})
	result, err := p.Recognize(context.Background(), "please stop it", newTestSession(), snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.Intent.Name != "timers.stop" {
		t.Fatalf("expected timers.stop, got %+v", result)
	}
}

func TestLLMPluginRejectsUnknownIntent(t *testing.T) {
	reg := newTestRegistry(t)
	snapshot := reg.Current()

	p := NewLLMPlugin(stubRecognizer{name: "bogus.intent", confidence: 0.9})
	result, err := p.Recognize(context.Background(), "gibberish", newTestSession(), snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Fatalf("expected nil result for unknown intent name, got %+v", result)
	}
}

func TestLLMPluginUnavailableWithoutRecognizer(t *testing.T) {
	reg := newTestRegistry(t)
	p := NewLLMPlugin(nil)
	_, err := p.Recognize(context.Background(), "hello", newTestSession(), reg.Current())
	if err == nil {
		t.Fatal("expected dependency-unavailable error with nil recognizer")
	}
}
