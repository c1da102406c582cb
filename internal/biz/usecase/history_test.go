package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// mockMessageRepo keeps messages in insertion order
type mockMessageRepo struct {
	msgs      []domain.Message
	lastLimit int
	err       error
}

func (m *mockMessageRepo) Append(ctx context.Context, msg *domain.Message) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	msg.SequenceID = int64(len(m.msgs) + 1)
	m.msgs = append(m.msgs, *msg)
	return msg.SequenceID, nil
}

func (m *mockMessageRepo) find(seq int64) *domain.Message {
	for i := range m.msgs {
		if m.msgs[i].SequenceID == seq {
			return &m.msgs[i]
		}
	}
	return nil
}

func (m *mockMessageRepo) Pin(ctx context.Context, seq int64) (bool, error) {
	msg := m.find(seq)
	if msg == nil {
		return false, nil
	}
	next, ok := msg.Importance.Pin()
	msg.Importance = next
	return ok, nil
}

func (m *mockMessageRepo) Unpin(ctx context.Context, seq int64) (bool, error) {
	msg := m.find(seq)
	if msg == nil {
		return false, nil
	}
	next, ok := msg.Importance.Unpin()
	msg.Importance = next
	return ok, nil
}

func (m *mockMessageRepo) PinnedMessages(ctx context.Context, chatID int64) ([]domain.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Message
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].ChatID == chatID && m.msgs[i].IsImportant() {
			out = append(out, m.msgs[i])
		}
	}
	return out, nil
}

func (m *mockMessageRepo) LastMessages(ctx context.Context, chatID int64, limit int) ([]domain.Message, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	var recent []domain.Message
	for i := len(m.msgs) - 1; i >= 0 && len(recent) < limit; i-- {
		if m.msgs[i].ChatID == chatID && !m.msgs[i].IsImportant() {
			recent = append(recent, m.msgs[i])
		}
	}
	pinned, _ := m.PinnedMessages(ctx, chatID)
	return append(recent, pinned...), nil
}

func (m *mockMessageRepo) Stats(ctx context.Context) (*domain.Stats, error) {
	return &domain.Stats{TotalMessages: len(m.msgs)}, m.err
}

func (m *mockMessageRepo) Close() error {
	return nil
}

func seed(repo *mockMessageRepo, chatID int64, n int) {
	for i := 1; i <= n; i++ {
		repo.Append(context.Background(), &domain.Message{ChatID: chatID, OriginMessageID: int64(i), Author: "Alice"})
	}
}

func origins(msgs []domain.Message) []int64 {
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.OriginMessageID)
	}
	return ids
}

func TestClampWindow(t *testing.T) {
	cases := map[int]int{-5: 0, 0: 0, 1: 1, 120: 120, 3000: 3000, 5000: 3000}
	for in, want := range cases {
		if got := ClampWindow(in); got != want {
			t.Errorf("ClampWindow(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestRetrieve_PinnedAfterRecentTier(t *testing.T) {
	repo := &mockMessageRepo{}
	seed(repo, 42, 5)
	repo.Pin(context.Background(), 2)

	uc := NewHistoryUsecase(repo)
	got, err := uc.Retrieve(context.Background(), 42, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []int64{5, 4, 2}
	if !reflect.DeepEqual(origins(got), want) {
		t.Errorf("Expected %v, got %v", want, origins(got))
	}
}

func TestRetrieve_WindowOf120(t *testing.T) {
	repo := &mockMessageRepo{}
	seed(repo, 42, 150)

	got, err := NewHistoryUsecase(repo).Retrieve(context.Background(), 42, 120)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 120 {
		t.Fatalf("Expected 120 messages, got %d", len(got))
	}
	if got[len(got)-1].OriginMessageID != 31 {
		t.Errorf("Expected oldest kept message 31, got %d", got[len(got)-1].OriginMessageID)
	}
}

func TestRetrieve_TierSizes(t *testing.T) {
	repo := &mockMessageRepo{}
	seed(repo, 1, 20)
	for _, seq := range []int64{3, 7, 19} {
		repo.Pin(context.Background(), seq)
	}
	uc := NewHistoryUsecase(repo)

	for _, w := range []int{1, 5, 17, 100, 3000} {
		got, err := uc.Retrieve(context.Background(), 1, w)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		recent, pinned := 0, 0
		seen := map[int64]bool{}
		for _, m := range got {
			if seen[m.SequenceID] {
				t.Errorf("window %d: duplicate sequence id %d", w, m.SequenceID)
			}
			seen[m.SequenceID] = true
			if m.IsImportant() {
				pinned++
			} else {
				recent++
			}
		}
		if recent > w || recent != min(w, 17) {
			t.Errorf("window %d: expected %d recent, got %d", w, min(w, 17), recent)
		}
		if pinned != 3 {
			t.Errorf("window %d: expected 3 pinned, got %d", w, pinned)
		}
	}
}

func TestRetrieve_Idempotent(t *testing.T) {
	repo := &mockMessageRepo{}
	seed(repo, 1, 10)
	repo.Pin(context.Background(), 4)
	uc := NewHistoryUsecase(repo)

	first, _ := uc.Retrieve(context.Background(), 1, 5)
	second, _ := uc.Retrieve(context.Background(), 1, 5)
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical results for repeated retrieval")
	}
}

func TestRetrieve_ClampsAboveCeiling(t *testing.T) {
	repo := &mockMessageRepo{}
	seed(repo, 1, 10)
	uc := NewHistoryUsecase(repo)

	big, _ := uc.Retrieve(context.Background(), 1, 5000)
	if repo.lastLimit != MaxWindowSize {
		t.Errorf("Expected limit %d, got %d", MaxWindowSize, repo.lastLimit)
	}
	ceiling, _ := uc.Retrieve(context.Background(), 1, 3000)
	if !reflect.DeepEqual(big, ceiling) {
		t.Error("Expected window 5000 to behave like 3000")
	}
}

func TestRetrieve_NonPositiveWindow(t *testing.T) {
	repo := &mockMessageRepo{}
	seed(repo, 1, 3)
	repo.Pin(context.Background(), 1)

	got, err := NewHistoryUsecase(repo).Retrieve(context.Background(), 1, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 1 || !got[0].IsImportant() {
		t.Errorf("Expected only the pinned message, got %v", origins(got))
	}
}

func TestRetrieve_StorageError(t *testing.T) {
	repo := &mockMessageRepo{err: &domain.StorageError{Op: "query", Err: errors.New("locked")}}

	_, err := NewHistoryUsecase(repo).Retrieve(context.Background(), 1, 10)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("Expected ErrStorageUnavailable, got %v", err)
	}
}
