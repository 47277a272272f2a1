// Package donation loads, validates and holds the declarative per-handler
// donation documents that drive the NLU cascade. A
// donation document describes how an intent handler's methods should be
// recognized from free text and which parameters each method expects; it
// never contains code, only data the cascade and the parameter extractor
// consume at request time.
package donation

import "fmt"

// SupportedSchemaVersion is the only schema_version this registry accepts.
const SupportedSchemaVersion = "1.0"

// ParameterType enumerates the accepted ParameterSpec.Type values.
type ParameterType string

const (
	ParamString   ParameterType = "string"
	ParamInteger  ParameterType = "integer"
	ParamFloat    ParameterType = "float"
	ParamDuration ParameterType = "duration"
	ParamDatetime ParameterType = "datetime"
	ParamBoolean  ParameterType = "boolean"
	ParamChoice   ParameterType = "choice"
	ParamEntity   ParameterType = "entity"
)

func (t ParameterType) numeric() bool {
	return t == ParamInteger || t == ParamFloat
}

// ParameterSpec describes one parameter a method donation accepts.
type ParameterSpec struct {
	Name               string          `json:"name"`
	Type               ParameterType   `json:"type"`
	Required           bool            `json:"required"`
	DefaultValue       any             `json:"default_value,omitempty"`
	Description        string          `json:"description,omitempty"`
	Choices            []string        `json:"choices,omitempty"`
	MinValue           *float64        `json:"min_value,omitempty"`
	MaxValue           *float64        `json:"max_value,omitempty"`
	Pattern            string          `json:"pattern,omitempty"`
	ExtractionPatterns []TokenPattern  `json:"extraction_patterns,omitempty"`
	Aliases            []string        `json:"aliases,omitempty"`
}

// TokenPattern is a raw sequence of per-token constraint maps, as decoded
// from JSON. It is compiled into a CompiledPattern by Compile before use;
// see the attribute-match DSL.
type TokenPattern []map[string]any

// Example pairs example text with the parameters it is expected to yield.
// Informational only; not consumed by validation or recognition.
type Example struct {
	Text       string         `json:"text"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// MethodDonation describes how one handler method is recognized.
type MethodDonation struct {
	MethodName   string                    `json:"method_name"`
	IntentSuffix string                    `json:"intent_suffix"`
	Phrases      []string                  `json:"phrases"`
	Lemmas       []string                  `json:"lemmas,omitempty"`
	Parameters   []ParameterSpec           `json:"parameters,omitempty"`
	TokenPatterns []TokenPattern           `json:"token_patterns,omitempty"`
	SlotPatterns map[string][]TokenPattern `json:"slot_patterns,omitempty"`
	Examples     []Example                 `json:"examples,omitempty"`
	Boost        float64                   `json:"boost,omitempty"`

	// compiledTokenPatterns and compiledSlotPatterns are populated by
	// compile() during registry load; nil until then.
	compiledTokenPatterns []CompiledPattern
	compiledSlotPatterns  map[string][]CompiledPattern

	// handlerDomain and fullIntentName are populated during load so a
	// MethodDonation can be passed around independent of its parent
	// HandlerDonation.
	handlerDomain  string
	fullIntentName string
}

// HandlerDomain returns the owning handler's domain identifier.
func (m *MethodDonation) HandlerDomain() string { return m.handlerDomain }

// FullIntentName returns "{handler_domain}.{intent_suffix}".
func (m *MethodDonation) FullIntentName() string { return m.fullIntentName }

// CompiledTokenPatterns returns the compiled token_patterns, ready for
// matching against a token sequence.
func (m *MethodDonation) CompiledTokenPatterns() []CompiledPattern { return m.compiledTokenPatterns }

// CompiledSlotPatterns returns the compiled slot_patterns keyed by slot name.
func (m *MethodDonation) CompiledSlotPatterns() map[string][]CompiledPattern {
	return m.compiledSlotPatterns
}

// EffectiveBoost returns Boost, defaulting to 1.0 when unset.
func (m *MethodDonation) EffectiveBoost() float64 {
	if m.Boost == 0 {
		return 1.0
	}
	return m.Boost
}

// HandlerDonation is the top-level declarative document for one intent
// handler
type HandlerDonation struct {
	SchemaVersion     string           `json:"schema_version"`
	HandlerDomain     string           `json:"handler_domain"`
	GlobalParameters  []ParameterSpec  `json:"global_parameters,omitempty"`
	MethodDonations   []MethodDonation `json:"method_donations"`
	NegativePatterns  []TokenPattern   `json:"negative_patterns,omitempty"`

	compiledNegativePatterns []CompiledPattern
}

// CompiledNegativePatterns returns the compiled negative_patterns: a token
// sequence matching one of these disqualifies the handler's methods from
// the rule stage regardless of an otherwise-positive token_pattern match.
func (h *HandlerDonation) CompiledNegativePatterns() []CompiledPattern {
	return h.compiledNegativePatterns
}

func (e Example) String() string {
	return fmt.Sprintf("%q -> %v", e.Text, e.Parameters)
}
