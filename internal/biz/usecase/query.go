package usecase

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// QueryTokens are the in-text flags recognized in an AI request
type QueryTokens struct {
	ContextPrefixes []string // e.g. "!context=", followed by the window size
	ThinkFlags      []string // Selects the thinking model
}

// DefaultQueryTokens accepts the English tokens and the Russian ones of the first version
var DefaultQueryTokens = QueryTokens{
	ContextPrefixes: []string{"!context=", "!контекст="},
	ThinkFlags:      []string{"!think", "!думай"},
}

// ParsedQuery is an AI request with its flags extracted
type ParsedQuery struct {
	Text   string // Current user query, flags removed
	Window int    // Clamped window size
	Think  bool
}

// QueryParser extracts flags from trigger messages
type QueryParser struct {
	contextRe *regexp.Regexp
	thinkRe   *regexp.Regexp
}

// NewQueryParser compiles the token patterns
func NewQueryParser(tokens QueryTokens) *QueryParser {
	return &QueryParser{
		contextRe: alternation(tokens.ContextPrefixes, `(\d*)\S*`),
		thinkRe:   alternation(tokens.ThinkFlags, ""),
	}
}

func alternation(tokens []string, suffix string) *regexp.Regexp {
	if len(tokens) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)` + suffix)
}

var defaultQueryParser = NewQueryParser(DefaultQueryTokens)

// ParseQuery parses raw with the default tokens
func ParseQuery(raw string) ParsedQuery {
	return defaultQueryParser.Parse(raw)
}

// Parse drops the trigger segment (everything up to the first comma, else the
// first space), then extracts the context size and the think flag.
// Leading digits of the context value are used, a value without them
// falls back to DefaultWindowSize.
func (p *QueryParser) Parse(raw string) ParsedQuery {
	q := ParsedQuery{Text: StripTrigger(raw), Window: DefaultWindowSize}

	if p.contextRe != nil {
		if m := p.contextRe.FindStringSubmatch(q.Text); m != nil {
			q.Window = parseWindow(m[1])
			q.Text = p.contextRe.ReplaceAllString(q.Text, "")
		}
	}

	if p.thinkRe != nil && p.thinkRe.MatchString(q.Text) {
		q.Think = true
		q.Text = p.thinkRe.ReplaceAllString(q.Text, "")
	}

	q.Text = strings.TrimSpace(q.Text)
	return q
}

// StripTrigger returns the text after the leading trigger segment
func StripTrigger(raw string) string {
	if _, after, ok := strings.Cut(raw, ","); ok {
		return strings.TrimSpace(after)
	}
	if _, after, ok := strings.Cut(raw, " "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func parseWindow(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return MaxWindowSize
		}
		return DefaultWindowSize
	}
	return ClampWindow(n)
}
