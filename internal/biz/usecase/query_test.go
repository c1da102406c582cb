package usecase

import "testing"

func TestStripTrigger(t *testing.T) {
	cases := map[string]string{
		"Gemini, what is up":  "what is up",
		"Gemini what, is up": "is up",
		"Gemini what is up":   "what is up",
		"Gemini":              "",
		"":                    "",
	}
	for in, want := range cases {
		if got := StripTrigger(in); got != want {
			t.Errorf("StripTrigger(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseQuery(t *testing.T) {
	cases := []struct {
		raw    string
		text   string
		window int
		think  bool
	}{
		{"Gemini, hello", "hello", DefaultWindowSize, false},
		{"Gemini, !context=50 summarize", "summarize", 50, false},
		{"Gemini, summarize !CONTEXT=10", "summarize", 10, false},
		{"Gemini, !context=5000 everything", "everything", MaxWindowSize, false},
		{"Gemini, !context=99999999999999999999 everything", "everything", MaxWindowSize, false},
		{"Gemini, !context=abc hi", "hi", DefaultWindowSize, false},
		{"Gemini, !context= hi", "hi", DefaultWindowSize, false},
		{"Gemini, !context=50abc hi", "hi", 50, false},
		{"Gemini, !context=-5 hi", "hi", DefaultWindowSize, false},
		{"Gemini, !context=0 hi", "hi", 0, false},
		{"Gemini, !think explain", "explain", DefaultWindowSize, true},
		{"Gemini, explain !Think", "explain", DefaultWindowSize, true},
		{"гемини, !контекст=30 !думай что нового", "что нового", 30, true},
		{"Gemini", "", DefaultWindowSize, false},
	}

	for _, tc := range cases {
		got := ParseQuery(tc.raw)
		if got.Text != tc.text || got.Window != tc.window || got.Think != tc.think {
			t.Errorf("ParseQuery(%q) = %+v, want text=%q window=%d think=%v",
				tc.raw, got, tc.text, tc.window, tc.think)
		}
	}
}

func TestQueryParser_CustomTokens(t *testing.T) {
	p := NewQueryParser(QueryTokens{ContextPrefixes: []string{"#n="}})

	got := p.Parse("bot, #n=7 !think hi")
	if got.Window != 7 {
		t.Errorf("Expected window 7, got %d", got.Window)
	}
	if got.Think {
		t.Error("Expected think flag to be ignored without think tokens")
	}
	if got.Text != "!think hi" {
		t.Errorf("Unexpected text %q", got.Text)
	}
}
