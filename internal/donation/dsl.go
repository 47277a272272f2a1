package donation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/voxrun/assistant/internal/apperr"
)

// Token is one normalized token of input text, as produced by whatever
// tokenizer feeds the rule stage. Lemma and POS may be empty if no
// morphological analyzer is configured; constraints against them then never
// match.
type Token struct {
	Text        string
	Lemma       string
	POS         string
	Lower       string
	LikeNum     bool
	IsSentStart bool
	IsAlpha     bool
}

// op is the repetition modifier recognized on OP
type op string

const (
	opOne      op = ""  // exactly one (default, no OP key)
	opOptional op = "?" // zero or one
	opPlus     op = "+" // one or more
	opStar     op = "*" // zero or more
)

// constraintFunc reports whether tok satisfies one compiled constraint.
type constraintFunc func(tok Token) bool

// compiledToken is one position of a CompiledPattern.
type compiledToken struct {
	constraints []constraintFunc
	op          op
	slotName    string // set only when this pattern is a slot pattern entry
}

func (ct compiledToken) matches(tok Token) bool {
	for _, c := range ct.constraints {
		if !c(tok) {
			return false
		}
	}
	return true
}

// CompiledPattern is a TokenPattern ready for matching, produced by Compile.
type CompiledPattern struct {
	tokens   []compiledToken
	slotName string // non-empty for a slot pattern
}

// Compile validates and compiles a raw TokenPattern into a CompiledPattern.
// It returns apperr.ErrDonationSchema wrapped with detail on any
// unrecognized key or malformed constraint value.
func Compile(raw TokenPattern) (CompiledPattern, error) {
	tokens := make([]compiledToken, 0, len(raw))
	for i, constraintMap := range raw {
		ct, err := compileToken(constraintMap)
		if err != nil {
			return CompiledPattern{}, apperr.Wrap(apperr.ErrDonationSchema, err, "token_pattern position %d", i)
		}
		tokens = append(tokens, ct)
	}
	return CompiledPattern{tokens: tokens}, nil
}

// CompileSlot compiles a TokenPattern as a slot pattern, recording slotName
// so matches populate intent.entities[slotName].
func CompileSlot(slotName string, raw TokenPattern) (CompiledPattern, error) {
	cp, err := Compile(raw)
	if err != nil {
		return CompiledPattern{}, err
	}
	cp.slotName = slotName
	return cp, nil
}

func compileToken(m map[string]any) (compiledToken, error) {
	ct := compiledToken{op: opOne}
	for key, val := range m {
		switch strings.ToUpper(key) {
		case "TEXT":
			fn, err := literalOrRegex(val, func(tok Token) string { return tok.Text })
			if err != nil {
				return ct, fmt.Errorf("TEXT: %w", err)
			}
			ct.constraints = append(ct.constraints, fn)
		case "LEMMA":
			fn, err := literalOrIn(val, func(tok Token) string { return tok.Lemma })
			if err != nil {
				return ct, fmt.Errorf("LEMMA: %w", err)
			}
			ct.constraints = append(ct.constraints, fn)
		case "POS":
			fn, err := literalOrIn(val, func(tok Token) string { return tok.POS })
			if err != nil {
				return ct, fmt.Errorf("POS: %w", err)
			}
			ct.constraints = append(ct.constraints, fn)
		case "LOWER":
			fn, err := literalOrIn(val, func(tok Token) string { return tok.Lower })
			if err != nil {
				return ct, fmt.Errorf("LOWER: %w", err)
			}
			ct.constraints = append(ct.constraints, fn)
		case "LIKE_NUM":
			want, ok := val.(bool)
			if !ok {
				return ct, fmt.Errorf("LIKE_NUM: expected bool, got %T", val)
			}
			ct.constraints = append(ct.constraints, func(tok Token) bool { return tok.LikeNum == want })
		case "IS_SENT_START":
			want, ok := val.(bool)
			if !ok {
				return ct, fmt.Errorf("IS_SENT_START: expected bool, got %T", val)
			}
			ct.constraints = append(ct.constraints, func(tok Token) bool { return tok.IsSentStart == want })
		case "IS_ALPHA":
			want, ok := val.(bool)
			if !ok {
				return ct, fmt.Errorf("IS_ALPHA: expected bool, got %T", val)
			}
			ct.constraints = append(ct.constraints, func(tok Token) bool { return tok.IsAlpha == want })
		case "OP":
			s, ok := val.(string)
			if !ok {
				return ct, fmt.Errorf("OP: expected string, got %T", val)
			}
			switch op(s) {
			case opOptional, opPlus, opStar:
				ct.op = op(s)
			default:
				return ct, fmt.Errorf("OP: unrecognized modifier %q", s)
			}
		default:
			return ct, fmt.Errorf("unrecognized constraint key %q", key)
		}
	}
	return ct, nil
}

// literalOrRegex accepts either a literal string (exact match) or a map
// {"REGEX": pattern} (regex that matches anywhere in the extracted field
// unless the pattern itself is anchored with ^ and $).
func literalOrRegex(val any, field func(Token) string) (constraintFunc, error) {
	switch v := val.(type) {
	case string:
		return func(tok Token) bool { return field(tok) == v }, nil
	case map[string]any:
		raw, ok := v["REGEX"]
		if !ok {
			return nil, fmt.Errorf("expected REGEX key in object constraint")
		}
		pattern, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("REGEX value must be a string")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		return func(tok Token) bool { return re.MatchString(field(tok)) }, nil
	default:
		return nil, fmt.Errorf("expected string or {REGEX: ...} object, got %T", val)
	}
}

// literalOrIn accepts either a literal string (exact match) or a map
// {"IN": [...]} (membership).
func literalOrIn(val any, field func(Token) string) (constraintFunc, error) {
	switch v := val.(type) {
	case string:
		return func(tok Token) bool { return field(tok) == v }, nil
	case map[string]any:
		raw, ok := v["IN"]
		if !ok {
			return nil, fmt.Errorf("expected IN key in object constraint")
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("IN value must be an array")
		}
		set := make(map[string]struct{}, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("IN array entries must be strings")
			}
			set[s] = struct{}{}
		}
		return func(tok Token) bool {
			_, ok := set[field(tok)]
			return ok
		}, nil
	default:
		return nil, fmt.Errorf("expected string or {IN: [...]} object, got %T", val)
	}
}

// Match reports whether pattern matches a contiguous subsequence of tokens,
// and if so, the half-open [start, end) span of the matched tokens plus, for
// slot patterns, the matched token texts joined by a single space.
//
// Matching is a straightforward backtracking search: it tries every start
// position in order and greedily expands "+"/"*" spans, backing off one
// token at a time until the remainder of the pattern matches or the span is
// exhausted. This is adequate for the short, hand-authored patterns donation
// documents carry; it is not a general regex engine.
func Match(pattern CompiledPattern, tokens []Token) (start, end int, slotText string, matched bool) {
	for s := 0; s <= len(tokens); s++ {
		if e, ok := matchFrom(pattern.tokens, tokens, s); ok {
			if pattern.slotName != "" {
				slotText = joinTokenText(tokens[s:e])
			}
			return s, e, slotText, true
		}
	}
	return 0, 0, "", false
}

func joinTokenText(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// matchFrom attempts to match the full constraint sequence `pat` against
// `tokens` starting at index `pos`, returning the end index on success.
func matchFrom(pat []compiledToken, tokens []Token, pos int) (int, bool) {
	if len(pat) == 0 {
		return pos, true
	}
	head, rest := pat[0], pat[1:]

	switch head.op {
	case opOne:
		if pos < len(tokens) && head.matches(tokens[pos]) {
			return matchFrom(rest, tokens, pos+1)
		}
		return 0, false
	case opOptional:
		// Try consuming one token first (greedy), then zero.
		if pos < len(tokens) && head.matches(tokens[pos]) {
			if e, ok := matchFrom(rest, tokens, pos+1); ok {
				return e, true
			}
		}
		return matchFrom(rest, tokens, pos)
	case opPlus, opStar:
		maxConsumed := pos
		for maxConsumed < len(tokens) && head.matches(tokens[maxConsumed]) {
			maxConsumed++
		}
		minConsumed := pos
		if head.op == opPlus {
			minConsumed = pos + 1
		}
		if minConsumed > maxConsumed {
			return 0, false
		}
		// Greedy: try the longest span first, back off until rest matches.
		for consumeTo := maxConsumed; consumeTo >= minConsumed; consumeTo-- {
			if e, ok := matchFrom(rest, tokens, consumeTo); ok {
				return e, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}
