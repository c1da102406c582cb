package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestImportance_RoundTripLiterals(t *testing.T) {
	cases := map[Importance]string{
		ImportanceDefault:    "None",
		ImportanceImportant:  "Important",
		ImportanceAIResponse: "Gemini",
	}
	for imp, literal := range cases {
		if imp.String() != literal {
			t.Errorf("Expected %q, got %q", literal, imp.String())
		}
		parsed, err := ParseImportance(literal)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if parsed != imp {
			t.Errorf("Expected %v, got %v", imp, parsed)
		}
	}
}

func TestParseImportance_Unknown(t *testing.T) {
	if _, err := ParseImportance("pinned"); err == nil {
		t.Error("Expected error for unknown literal")
	}
}

func TestImportance_Pin(t *testing.T) {
	next, ok := ImportanceDefault.Pin()
	if !ok || next != ImportanceImportant {
		t.Errorf("Expected Default to pin, got %v (ok=%v)", next, ok)
	}

	next, ok = ImportanceImportant.Pin()
	if ok || next != ImportanceImportant {
		t.Errorf("Expected Important to stay, got %v (ok=%v)", next, ok)
	}

	next, ok = ImportanceAIResponse.Pin()
	if ok || next != ImportanceAIResponse {
		t.Errorf("Expected AIResponse to stay, got %v (ok=%v)", next, ok)
	}
}

func TestImportance_Unpin(t *testing.T) {
	pinned, _ := ImportanceDefault.Pin()
	next, ok := pinned.Unpin()
	if !ok || next != ImportanceDefault {
		t.Errorf("Expected unpin to return Default, got %v (ok=%v)", next, ok)
	}

	again, ok := next.Unpin()
	if ok || again != ImportanceDefault {
		t.Errorf("Expected second unpin to be a no-op, got %v (ok=%v)", again, ok)
	}

	if _, ok := ImportanceAIResponse.Unpin(); ok {
		t.Error("Expected AIResponse unpin to fail")
	}
}

func TestStorageError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("append: %w", &StorageError{Op: "insert", Err: errors.New("disk I/O error")})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Error("Expected StorageError to match ErrStorageUnavailable")
	}

	var se *StorageError
	if !errors.As(err, &se) || se.Op != "insert" {
		t.Errorf("Expected StorageError with op insert, got %v", se)
	}
}

func TestAIError_Classification(t *testing.T) {
	cause := errors.New("deadline")
	err := &AIError{Kind: ErrAITimeout, Err: cause}
	if !errors.Is(err, ErrAITimeout) {
		t.Error("Expected ErrAITimeout")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected wrapped cause")
	}
	if errors.Is(err, ErrAITransport) {
		t.Error("Did not expect ErrAITransport")
	}
	if err.Error() != "ai timeout: deadline" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
