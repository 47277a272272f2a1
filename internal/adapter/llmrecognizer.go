package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/voxrun/assistant/pkg/provider/llm"
	"github.com/voxrun/assistant/pkg/types"
)

const llmSystemPromptTemplate = `You are an intent classifier for a voice assistant. Given the user's ` +
	`utterance, choose the single best matching intent from the candidate list, or reject it if none ` +
	`fit. Respond with ONLY a JSON object of the form ` +
	`{"intent": "<one of the candidates, or empty string>", "entities": {}, "confidence": <0.0-1.0>}. ` +
	`Never invent an intent name outside the candidate list. Candidates: %s`

// llmResponse is the strict-grammar JSON shape the system prompt requires.
type llmResponse struct {
	Intent     string         `json:"intent"`
	Entities   map[string]any `json:"entities"`
	Confidence float64        `json:"confidence"`
}

// LLMRecognizer implements nlu.LLMRecognizer over an llm.Provider,
// constraining the model to a strict grammar: it may only return one of the
// candidates handed to it, or the empty string.
type LLMRecognizer struct {
	provider    llm.Provider
	temperature float64
}

// LLMRecognizerOption configures an LLMRecognizer.
type LLMRecognizerOption func(*LLMRecognizer)

// WithTemperature overrides the default 0.0 (greedy) decoding temperature.
func WithTemperature(t float64) LLMRecognizerOption {
	return func(r *LLMRecognizer) { r.temperature = t }
}

// NewLLMRecognizer builds an LLMRecognizer backed by provider.
func NewLLMRecognizer(provider llm.Provider, opts ...LLMRecognizerOption) *LLMRecognizer {
	r := &LLMRecognizer{provider: provider}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RecognizeIntent asks the wrapped provider to classify text against
// candidates and validates that the response names one of them.
func (r *LLMRecognizer) RecognizeIntent(ctx context.Context, text string, candidates []string) (string, map[string]any, float64, error) {
	if len(candidates) == 0 {
		return "", nil, 0, nil
	}

	req := llm.CompletionRequest{
		Messages:     []types.Message{{Role: "user", Content: text}},
		SystemPrompt: fmt.Sprintf(llmSystemPromptTemplate, strings.Join(candidates, ", ")),
		Temperature:  r.temperature,
	}

	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		return "", nil, 0, fmt.Errorf("adapter: llm recognizer: complete: %w", err)
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return "", nil, 0, fmt.Errorf("adapter: llm recognizer: parse response: %w", err)
	}

	if parsed.Intent == "" {
		return "", nil, 0, nil
	}
	if !slices.Contains(candidates, parsed.Intent) {
		return "", nil, 0, nil
	}

	return parsed.Intent, parsed.Entities, parsed.Confidence, nil
}
