package donation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/voxrun/assistant/internal/apperr"
)

// ExtractParameters runs the post-stage parameter extractor for method over
// tokens. slotMatches holds slot_name -> matched text already produced by
// the rule stage, if any (nil for non-rule stages).
//
// For every declared parameter: if a slot match or an extraction_pattern
// match supplies a raw value, it is converted per the parameter's type and
// validated (range, choice membership, regex). A required parameter with no
// value and no default returns apperr.ErrParameterExtraction; the pipeline
// orchestrator's dispatch converts this into a clarification prompt.
func ExtractParameters(method *MethodDonation, tokens []Token, slotMatches map[string]string) (map[string]any, error) {
	entities := make(map[string]any, len(method.Parameters))

	for _, spec := range method.Parameters {
		raw, ok := rawValueFor(spec, tokens, slotMatches)
		if !ok {
			if spec.DefaultValue != nil {
				entities[spec.Name] = spec.DefaultValue
				continue
			}
			if spec.Required {
				return entities, apperr.New(apperr.ErrParameterExtraction,
					"required parameter %q for method %q has no value and no default", spec.Name, method.MethodName)
			}
			continue
		}
		val, err := convertAndValidate(spec, raw)
		if err != nil {
			return entities, apperr.Wrap(apperr.ErrParameterExtraction, err,
				"parameter %q for method %q", spec.Name, method.MethodName)
		}
		entities[spec.Name] = val
	}
	return entities, nil
}

// rawValueFor resolves the raw string value for spec, preferring a slot
// match (by parameter name, then by alias), falling back to the parameter's
// own extraction_patterns matched against tokens.
func rawValueFor(spec ParameterSpec, tokens []Token, slotMatches map[string]string) (string, bool) {
	if v, ok := slotMatches[spec.Name]; ok {
		return v, true
	}
	for _, alias := range spec.Aliases {
		if v, ok := slotMatches[alias]; ok {
			return v, true
		}
	}
	for _, raw := range spec.ExtractionPatterns {
		cp, err := Compile(raw)
		if err != nil {
			continue
		}
		if start, end, _, ok := Match(cp, tokens); ok && end > start {
			return joinTokenText(tokens[start:end]), true
		}
	}
	return "", false
}

func convertAndValidate(spec ParameterSpec, raw string) (any, error) {
	switch spec.Type {
	case ParamString, ParamEntity:
		if spec.Pattern != "" {
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", spec.Pattern, err)
			}
			if !re.MatchString(raw) {
				return nil, fmt.Errorf("value %q does not match pattern %q", raw, spec.Pattern)
			}
		}
		return raw, nil

	case ParamInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer: %w", raw, err)
		}
		if err := checkRange(spec, float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case ParamFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a float: %w", raw, err)
		}
		if err := checkRange(spec, f); err != nil {
			return nil, err
		}
		return f, nil

	case ParamDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a duration: %w", raw, err)
		}
		if err := checkRange(spec, float64(d)); err != nil {
			return nil, err
		}
		return d, nil

	case ParamDatetime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an RFC3339 datetime: %w", raw, err)
		}
		return t, nil

	case ParamBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a boolean: %w", raw, err)
		}
		return b, nil

	case ParamChoice:
		for _, c := range spec.Choices {
			if c == raw {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("value %q is not one of %v", raw, spec.Choices)

	default:
		return nil, fmt.Errorf("unsupported parameter type %q", spec.Type)
	}
}

func checkRange(spec ParameterSpec, v float64) error {
	if spec.MinValue != nil && v < *spec.MinValue {
		return fmt.Errorf("value %v is below min_value %v", v, *spec.MinValue)
	}
	if spec.MaxValue != nil && v > *spec.MaxValue {
		return fmt.Errorf("value %v is above max_value %v", v, *spec.MaxValue)
	}
	return nil
}
