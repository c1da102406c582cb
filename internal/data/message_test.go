package data

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	r, err := NewMessageRepo(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func appendN(t *testing.T, r *SQLiteRepo, chatID int64, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		id, err := r.Append(context.Background(), &domain.Message{
			ChatID:          chatID,
			OriginMessageID: int64(i),
			Author:          "Alice",
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
			Content:         fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func originIDs(msgs []domain.Message) []int64 {
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.OriginMessageID)
	}
	return ids
}

func TestAppend_SequenceIncreases(t *testing.T) {
	r := newTestRepo(t)
	ids := appendN(t, r, 1, 3)

	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
}

func TestAppend_RoundTripsFields(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)

	msg := &domain.Message{
		ChatID:          7,
		OriginMessageID: 99,
		Author:          "Bob",
		Timestamp:       ts,
		Content:         "hi",
		Tags:            "contains photo",
	}
	_, err := r.Append(ctx, msg)
	require.NoError(t, err)
	assert.NotZero(t, msg.SequenceID)

	got, err := r.LastMessages(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(99), got[0].OriginMessageID)
	assert.Equal(t, "Bob", got[0].Author)
	assert.Equal(t, "hi", got[0].Content)
	assert.Equal(t, "contains photo", got[0].Tags)
	assert.True(t, got[0].Timestamp.Equal(ts))
	assert.Equal(t, domain.ImportanceDefault, got[0].Importance)
}

func TestLastMessages_OrderingWithPin(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ids := appendN(t, r, 42, 5)

	ok, err := r.Pin(ctx, ids[1])
	require.NoError(t, err)
	require.True(t, ok)

	got, err := r.LastMessages(ctx, 42, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 2}, originIDs(got))
	assert.False(t, got[0].IsImportant())
	assert.False(t, got[1].IsImportant())
	assert.True(t, got[2].IsImportant())
}

func TestLastMessages_WindowExcludesOldest(t *testing.T) {
	r := newTestRepo(t)
	appendN(t, r, 42, 150)

	got, err := r.LastMessages(context.Background(), 42, 120)
	require.NoError(t, err)
	require.Len(t, got, 120)
	assert.Equal(t, int64(150), got[0].OriginMessageID)
	assert.Equal(t, int64(31), got[119].OriginMessageID)
	for _, m := range got {
		assert.False(t, m.IsImportant())
	}
}

func TestLastMessages_ZeroLimitReturnsOnlyPins(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ids := appendN(t, r, 1, 3)
	_, err := r.Pin(ctx, ids[0])
	require.NoError(t, err)

	got, err := r.LastMessages(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, originIDs(got))
}

func TestLastMessages_IncludesAIResponses(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	appendN(t, r, 1, 2)
	_, err := r.Append(ctx, &domain.Message{ChatID: 1, OriginMessageID: 3, Author: "Gemini", Content: "answer", Importance: domain.ImportanceAIResponse})
	require.NoError(t, err)

	got, err := r.LastMessages(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].IsAIResponse())
}

func TestLastMessages_ChatsAreIsolated(t *testing.T) {
	r := newTestRepo(t)
	appendN(t, r, 1, 3)
	appendN(t, r, 2, 4)

	got, err := r.LastMessages(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestPinUnpin_Transitions(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ids := appendN(t, r, 1, 1)

	ok, err := r.Pin(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Pin(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, ok, "second pin must be a no-op")

	ok, err = r.Unpin(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Unpin(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, ok, "second unpin must be a no-op")

	got, err := r.LastMessages(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.ImportanceDefault, got[0].Importance)
}

func TestPin_RejectsAIResponseAndMissing(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	id, err := r.Append(ctx, &domain.Message{ChatID: 1, Content: "answer", Importance: domain.ImportanceAIResponse})
	require.NoError(t, err)

	ok, err := r.Pin(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Pin(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Unpin(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPinnedMessages_NewestFirst(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ids := appendN(t, r, 1, 4)
	for _, id := range []int64{ids[0], ids[2]} {
		_, err := r.Pin(ctx, id)
		require.NoError(t, err)
	}

	got, err := r.PinnedMessages(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, originIDs(got))
}

func TestWhitelist_Idempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	ok, err := r.IsWhitelisted(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	added, err := r.AddToWhitelist(ctx, 5)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.AddToWhitelist(ctx, 5)
	require.NoError(t, err)
	assert.False(t, added)

	ok, err = r.IsWhitelisted(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := r.RemoveFromWhitelist(ctx, 5)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.RemoveFromWhitelist(ctx, 5)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStats(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ids := appendN(t, r, 1, 3)
	appendN(t, r, 2, 5)
	_, err := r.Pin(ctx, ids[0])
	require.NoError(t, err)
	_, err = r.Append(ctx, &domain.Message{ChatID: 1, Content: "answer", Importance: domain.ImportanceAIResponse})
	require.NoError(t, err)
	_, err = r.AddToWhitelist(ctx, 1)
	require.NoError(t, err)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, stats.TotalMessages)
	assert.Equal(t, 1, stats.ImportantMessages)
	assert.Equal(t, 1, stats.AIResponses)
	assert.Equal(t, 1, stats.WhitelistedChats)
	assert.Equal(t, []domain.ChatCount{{ChatID: 2, Count: 5}, {ChatID: 1, Count: 4}}, stats.MessagesByChat)
}

func TestClosedStore_ReturnsStorageError(t *testing.T) {
	r, err := NewMessageRepo(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Append(context.Background(), &domain.Message{ChatID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))

	_, err = r.LastMessages(context.Background(), 1, 10)
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
}

func TestNewMessageRepo_OpensLegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	first, err := NewMessageRepo(ctx, path)
	require.NoError(t, err)
	_, err = first.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, message_id, author, date, content, tags, important)
		VALUES (1, 10, 'Alice', '2024-03-01T08:15:30', 'old', '', 'None'),
		       (1, 11, 'Alice', 'yesterday', 'odd', '', 'Important')
	`)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewMessageRepo(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.LastMessages(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 2024, got[0].Timestamp.Year())
	assert.Equal(t, 15, got[0].Timestamp.Minute())
	assert.True(t, got[1].Timestamp.IsZero())
	assert.Equal(t, "yesterday", got[1].RawTimestamp)
}

func TestParseTimestamp(t *testing.T) {
	cases := []string{
		"2024-03-01T08:15:30Z",
		"2024-03-01T08:15:30+03:00",
		"2024-03-01T08:15:30.123456",
		"2024-03-01 08:15:30",
	}
	for _, raw := range cases {
		assert.False(t, parseTimestamp(raw).IsZero(), raw)
	}
	assert.True(t, parseTimestamp("").IsZero())
}
