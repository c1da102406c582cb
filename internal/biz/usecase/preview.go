package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// MaxChunkLength is the longest text sent in one chat message
const MaxChunkLength = 4000

const previewRule = "=================================================="

// Preview is everything needed to show a prompt without calling the AI
type Preview struct {
	SystemPrompt string
	Prompt       string
	Model        string
	Window       int
	HistoryCount int
	Settings     domain.GenerationSettings
}

// Render formats the preview report
func (p *Preview) Render() string {
	var sb strings.Builder

	section := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(previewRule)
		sb.WriteString("\n")
		sb.WriteString(title)
		sb.WriteString("\n")
		sb.WriteString(previewRule)
		sb.WriteString("\n")
	}

	sb.WriteString("🔍 PROMPT PREVIEW (AI is not called)\n")

	section("📋 SYSTEM INSTRUCTION:")
	sb.WriteString(p.SystemPrompt)
	sb.WriteString("\n")

	section("💬 USER CONTENT:")
	sb.WriteString(p.Prompt)
	sb.WriteString("\n")

	section("⚙️ SETTINGS:")
	fmt.Fprintf(&sb, "Model: %s\n", p.Model)
	fmt.Fprintf(&sb, "Context: %d messages\n", p.Window)
	fmt.Fprintf(&sb, "Temperature: %g\n", p.Settings.Temperature)
	fmt.Fprintf(&sb, "Top P: %g\n", p.Settings.TopP)
	fmt.Fprintf(&sb, "Top K: %g\n", p.Settings.TopK)
	fmt.Fprintf(&sb, "Max tokens: %d\n", p.Settings.MaxOutputTokens)
	if p.Settings.GoogleSearch {
		sb.WriteString("Tools: Google Search\n")
	}

	systemLen := utf8.RuneCountInString(p.SystemPrompt)
	promptLen := utf8.RuneCountInString(p.Prompt)
	section("📊 STATISTICS:")
	fmt.Fprintf(&sb, "System prompt length: %d characters\n", systemLen)
	fmt.Fprintf(&sb, "User content length: %d characters\n", promptLen)
	fmt.Fprintf(&sb, "Total length: %d characters\n", systemLen+promptLen)
	fmt.Fprintf(&sb, "Messages in history: %d\n", p.HistoryCount)

	return sb.String()
}

// ChunkText splits text on line boundaries into pieces of at most max characters.
// Lines longer than max are split mid-line.
func ChunkText(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		split := false
		for len(runes) >= max {
			flush()
			chunks = append(chunks, string(runes[:max]))
			runes = runes[max:]
			split = true
		}
		if split && len(runes) == 0 {
			continue
		}

		if currentLen+len(runes)+1 > max {
			flush()
		}
		current.WriteString(string(runes))
		current.WriteString("\n")
		currentLen += len(runes) + 1
	}
	flush()

	return chunks
}
