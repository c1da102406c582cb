package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// historyTimeLayout renders message timestamps in the prompt
const historyTimeLayout = "2006-01-02 15:04:05"

// PromptConfig contains the literals of the prompt format
type PromptConfig struct {
	ImportantMarker string // Prefix of pinned lines
	QuerySeparator  string // Between the history block and the current query
	AIName          string // Author shown for stored AI replies
	MediaAuthor     string // Author stored with media analysis replies
	MediaTags       string // Tags stored with media analysis replies
}

// DefaultPromptConfig contains default prompt configuration
var DefaultPromptConfig = PromptConfig{
	ImportantMarker: "[MESSAGE MARKED AS IMPORTANT] ",
	QuerySeparator:  "\n\nCurrent user request: ",
	AIName:          "Gemini",
	MediaAuthor:     "Gemini Media Analysis",
	MediaTags:       "media_analysis",
}

// ContextBuilderUsecase turns retrieved history into the prompt text
type ContextBuilderUsecase struct {
	cfg PromptConfig
	loc *time.Location
}

// NewContextBuilderUsecase creates a new context builder usecase
// loc is the time zone timestamps are rendered in, nil means UTC
func NewContextBuilderUsecase(cfg PromptConfig, loc *time.Location) *ContextBuilderUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &ContextBuilderUsecase{cfg: cfg, loc: loc}
}

// Config returns the prompt literals in use
func (uc *ContextBuilderUsecase) Config() PromptConfig {
	return uc.cfg
}

// Location returns the time zone timestamps are rendered in
func (uc *ContextBuilderUsecase) Location() *time.Location {
	return uc.loc
}

// FormatHistory renders msgs in reverse input order, one line per message.
// Input is the retrieval order (recent tier, then pins), so pins print first.
func (uc *ContextBuilderUsecase) FormatHistory(msgs []domain.Message) string {
	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		lines = append(lines, uc.formatLine(&msgs[i]))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt combines the formatted history with the current user query
func (uc *ContextBuilderUsecase) BuildPrompt(msgs []domain.Message, query string) string {
	return uc.FormatHistory(msgs) + uc.cfg.QuerySeparator + query
}

func (uc *ContextBuilderUsecase) formatLine(m *domain.Message) string {
	var sb strings.Builder

	if m.IsImportant() {
		sb.WriteString(uc.cfg.ImportantMarker)
	}

	author := m.Author
	if m.IsAIResponse() {
		author = uc.cfg.AIName
	}

	sb.WriteString(strconv.FormatInt(m.OriginMessageID, 10))
	sb.WriteString(" ")
	sb.WriteString(uc.formatTime(m))
	sb.WriteString(" ")
	sb.WriteString(author)
	if m.Tags != "" {
		sb.WriteString(" (")
		sb.WriteString(m.Tags)
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(m.Content)

	return sb.String()
}

// formatTime falls back to the stored text for timestamps that did not parse
func (uc *ContextBuilderUsecase) formatTime(m *domain.Message) string {
	if m.Timestamp.IsZero() && m.RawTimestamp != "" {
		return m.RawTimestamp
	}
	return m.Timestamp.In(uc.loc).Format(historyTimeLayout)
}
