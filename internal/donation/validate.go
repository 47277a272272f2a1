package donation

import (
	"github.com/voxrun/assistant/internal/apperr"
)

// HandlerCapability is implemented by whatever registers intent handlers; it
// exposes the "handler has method X" predicate validation requires without
// the donation package importing the handler registry.
type HandlerCapability interface {
	HasMethod(handlerDomain, methodName string) bool
}

// validate runs every fatal schema check against h, compiling its token
// patterns as a side effect. It returns the first violation found, wrapped
// in apperr.ErrDonationSchema.
func validate(h *HandlerDonation, capability HandlerCapability) error {
	if h.SchemaVersion != SupportedSchemaVersion {
		return apperr.New(apperr.ErrDonationSchema, "handler %q: unsupported schema_version %q", h.HandlerDomain, h.SchemaVersion)
	}
	if h.HandlerDomain == "" {
		return apperr.New(apperr.ErrDonationSchema, "handler_domain must not be empty")
	}
	if len(h.MethodDonations) == 0 {
		return apperr.New(apperr.ErrDonationSchema, "handler %q: method_donations must have at least one entry", h.HandlerDomain)
	}

	seenMethod := make(map[string]struct{}, len(h.MethodDonations))
	seenSuffix := make(map[string]struct{}, len(h.MethodDonations))

	for i := range h.MethodDonations {
		m := &h.MethodDonations[i]
		if m.MethodName == "" {
			return apperr.New(apperr.ErrDonationSchema, "handler %q: method_donations[%d] has empty method_name", h.HandlerDomain, i)
		}
		if _, dup := seenMethod[m.MethodName]; dup {
			return apperr.New(apperr.ErrDonationSchema, "handler %q: duplicate method_name %q", h.HandlerDomain, m.MethodName)
		}
		seenMethod[m.MethodName] = struct{}{}

		if m.IntentSuffix == "" {
			return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q has empty intent_suffix", h.HandlerDomain, m.MethodName)
		}
		if _, dup := seenSuffix[m.IntentSuffix]; dup {
			return apperr.New(apperr.ErrDonationSchema, "handler %q: duplicate intent_suffix %q", h.HandlerDomain, m.IntentSuffix)
		}
		seenSuffix[m.IntentSuffix] = struct{}{}

		if len(m.Phrases) == 0 {
			return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q has no phrases", h.HandlerDomain, m.MethodName)
		}
		if m.Boost < 0 || m.Boost > 10 {
			return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q boost %v out of [0,10]", h.HandlerDomain, m.MethodName, m.Boost)
		}

		if capability != nil && !capability.HasMethod(h.HandlerDomain, m.MethodName) {
			return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q not found on handler", h.HandlerDomain, m.MethodName)
		}

		for _, p := range append(append([]ParameterSpec{}, h.GlobalParameters...), m.Parameters...) {
			if err := validateParameter(h.HandlerDomain, m.MethodName, p); err != nil {
				return err
			}
		}

		compiledPatterns := make([]CompiledPattern, 0, len(m.TokenPatterns))
		for j, raw := range m.TokenPatterns {
			cp, err := Compile(raw)
			if err != nil {
				return apperr.Wrap(apperr.ErrDonationSchema, err, "handler %q: method %q: token_patterns[%d]", h.HandlerDomain, m.MethodName, j)
			}
			compiledPatterns = append(compiledPatterns, cp)
		}
		m.compiledTokenPatterns = compiledPatterns

		if len(m.SlotPatterns) > 0 {
			compiledSlots := make(map[string][]CompiledPattern, len(m.SlotPatterns))
			for slotName, patterns := range m.SlotPatterns {
				compiled := make([]CompiledPattern, 0, len(patterns))
				for j, raw := range patterns {
					cp, err := CompileSlot(slotName, raw)
					if err != nil {
						return apperr.Wrap(apperr.ErrDonationSchema, err, "handler %q: method %q: slot_patterns[%q][%d]", h.HandlerDomain, m.MethodName, slotName, j)
					}
					compiled = append(compiled, cp)
				}
				compiledSlots[slotName] = compiled
			}
			m.compiledSlotPatterns = compiledSlots
		}

		m.handlerDomain = h.HandlerDomain
		m.fullIntentName = h.HandlerDomain + "." + m.IntentSuffix
	}

	compiledNeg := make([]CompiledPattern, 0, len(h.NegativePatterns))
	for j, raw := range h.NegativePatterns {
		cp, err := Compile(raw)
		if err != nil {
			return apperr.Wrap(apperr.ErrDonationSchema, err, "handler %q: negative_patterns[%d]", h.HandlerDomain, j)
		}
		compiledNeg = append(compiledNeg, cp)
	}
	h.compiledNegativePatterns = compiledNeg

	return nil
}

func validateParameter(handlerDomain, methodName string, p ParameterSpec) error {
	switch p.Type {
	case ParamString, ParamInteger, ParamFloat, ParamDuration, ParamDatetime, ParamBoolean, ParamChoice, ParamEntity:
	default:
		return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q: parameter %q has unsupported type %q", handlerDomain, methodName, p.Name, p.Type)
	}
	if p.Type == ParamChoice && len(p.Choices) == 0 {
		return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q: parameter %q is type choice but has no choices", handlerDomain, methodName, p.Name)
	}
	if p.Type != ParamChoice && len(p.Choices) > 0 {
		return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q: parameter %q has choices but is not type choice", handlerDomain, methodName, p.Name)
	}
	if (p.MinValue != nil || p.MaxValue != nil) && !p.Type.numeric() {
		return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q: parameter %q has min/max_value but is not a numeric type", handlerDomain, methodName, p.Name)
	}
	if p.Pattern != "" && p.Type != ParamString {
		return apperr.New(apperr.ErrDonationSchema, "handler %q: method %q: parameter %q has pattern but is not type string", handlerDomain, methodName, p.Name)
	}
	return nil
}
