package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

func TestPreview_Render(t *testing.T) {
	p := &Preview{
		SystemPrompt: "be brief",
		Prompt:       "history\n\nCurrent user request: hi",
		Model:        "gemini-flash-latest",
		Window:       120,
		HistoryCount: 1,
		Settings:     domain.DefaultGenerationSettings(),
	}

	out := p.Render()
	for _, want := range []string{
		"be brief",
		"Current user request: hi",
		"Model: gemini-flash-latest",
		"Context: 120 messages",
		"Top K: 60",
		"Max tokens: 8192",
		"Tools: Google Search",
		"Messages in history: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected preview to contain %q", want)
		}
	}
}

func TestChunkText_Short(t *testing.T) {
	chunks := ChunkText("short", 10)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("Expected single chunk, got %v", chunks)
	}
}

func TestChunkText_SplitsOnLines(t *testing.T) {
	text := strings.Repeat("abcdefghi\n", 10)

	chunks := ChunkText(text, 25)
	if len(chunks) < 4 {
		t.Fatalf("Expected at least 4 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 25 {
			t.Errorf("Chunk too long: %d", utf8.RuneCountInString(c))
		}
	}
	if !strings.Contains(strings.Join(chunks, ""), "abcdefghi") {
		t.Error("Expected content preserved")
	}
}

func TestChunkText_LongLine(t *testing.T) {
	text := strings.Repeat("я", 25) + "\nend"

	chunks := ChunkText(text, 10)
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 10 {
			t.Errorf("Chunk too long: %q", c)
		}
		if c == "" {
			t.Error("Unexpected empty chunk")
		}
	}
	joined := strings.ReplaceAll(strings.Join(chunks, ""), "\n", "")
	if joined != strings.Repeat("я", 25)+"end" {
		t.Errorf("Content lost: %q", joined)
	}
}
