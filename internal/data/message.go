package data

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timestampLayout is what new rows are written with
const timestampLayout = time.RFC3339

// legacyLayouts parse rows written by the first version of the bot
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

var (
	_ repo.MessageRepo   = (*SQLiteRepo)(nil)
	_ repo.WhitelistRepo = (*SQLiteRepo)(nil)
)

// SQLiteRepo implements the message store and the whitelist on one sqlite file
type SQLiteRepo struct {
	db *sqlx.DB
}

type messageRow struct {
	ID        int64          `db:"id"`
	ChatID    int64          `db:"chat_id"`
	MessageID sql.NullInt64  `db:"message_id"`
	Author    sql.NullString `db:"author"`
	Date      sql.NullString `db:"date"`
	Content   sql.NullString `db:"content"`
	Tags      sql.NullString `db:"tags"`
	Important sql.NullString `db:"important"`
}

// NewMessageRepo opens (or creates) the database and applies migrations
func NewMessageRepo(ctx context.Context, dbPath string) (*SQLiteRepo, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, storageErr("open", fmt.Errorf("failed to create db directory: %w", err))
		}
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open", fmt.Errorf("failed to open database: %w", err))
	}

	// One connection: handlers of an instance run concurrently and sqlite has a single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()
			return nil, storageErr("open", fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	if err := migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, storageErr("migrate", err)
	}

	return &SQLiteRepo{db: sqlx.NewDb(sqlDB, "sqlite3")}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return &domain.StorageError{Op: op, Err: err}
}

// Append stores a message and returns its sequence id
func (r *SQLiteRepo) Append(ctx context.Context, msg *domain.Message) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, message_id, author, date, content, tags, important)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ChatID,
		msg.OriginMessageID,
		msg.Author,
		msg.Timestamp.UTC().Format(timestampLayout),
		msg.Content,
		msg.Tags,
		msg.Importance.String(),
	)
	if err != nil {
		return 0, storageErr("append", fmt.Errorf("failed to insert message: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("append", fmt.Errorf("failed to read sequence id: %w", err))
	}
	msg.SequenceID = id
	return id, nil
}

// Pin marks a Default message as Important
func (r *SQLiteRepo) Pin(ctx context.Context, seq int64) (bool, error) {
	return r.transition(ctx, "pin", seq, domain.ImportanceDefault, domain.ImportanceImportant)
}

// Unpin returns an Important message to Default
func (r *SQLiteRepo) Unpin(ctx context.Context, seq int64) (bool, error) {
	return r.transition(ctx, "unpin", seq, domain.ImportanceImportant, domain.ImportanceDefault)
}

func (r *SQLiteRepo) transition(ctx context.Context, op string, seq int64, from, to domain.Importance) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET important = ? WHERE id = ? AND important = ?`,
		to.String(), seq, from.String(),
	)
	if err != nil {
		return false, storageErr(op, fmt.Errorf("failed to update message: %w", err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr(op, err)
	}
	return n > 0, nil
}

// PinnedMessages gets all Important messages of a chat, newest first
func (r *SQLiteRepo) PinnedMessages(ctx context.Context, chatID int64) ([]domain.Message, error) {
	msgs, err := r.selectMessages(ctx, `
		SELECT id, chat_id, message_id, author, date, content, tags, important
		FROM messages
		WHERE chat_id = ? AND important = ?
		ORDER BY id DESC
	`, chatID, domain.ImportanceImportant.String())
	if err != nil {
		return nil, storageErr("pinned", err)
	}
	return msgs, nil
}

// LastMessages gets the recent tier followed by the important tier
func (r *SQLiteRepo) LastMessages(ctx context.Context, chatID int64, limit int) ([]domain.Message, error) {
	var recent []domain.Message
	if limit > 0 {
		var err error
		recent, err = r.selectMessages(ctx, `
			SELECT id, chat_id, message_id, author, date, content, tags, important
			FROM messages
			WHERE chat_id = ? AND important IN (?, ?)
			ORDER BY id DESC
			LIMIT ?
		`, chatID, domain.ImportanceDefault.String(), domain.ImportanceAIResponse.String(), limit)
		if err != nil {
			return nil, storageErr("last messages", err)
		}
	}

	pinned, err := r.PinnedMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	return append(recent, pinned...), nil
}

func (r *SQLiteRepo) selectMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toDomain())
	}
	return msgs, nil
}

func (row *messageRow) toDomain() domain.Message {
	importance, err := domain.ParseImportance(row.Important.String)
	if err != nil {
		importance = domain.ImportanceDefault
	}

	return domain.Message{
		SequenceID:      row.ID,
		ChatID:          row.ChatID,
		OriginMessageID: row.MessageID.Int64,
		Author:          row.Author.String,
		Timestamp:       parseTimestamp(row.Date.String),
		RawTimestamp:    row.Date.String,
		Content:         row.Content.String,
		Tags:            row.Tags.String,
		Importance:      importance,
	}
}

// parseTimestamp returns the zero time when raw matches no known layout
func parseTimestamp(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Stats computes storage statistics
func (r *SQLiteRepo) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{}

	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&stats.TotalMessages, `SELECT COUNT(*) FROM messages`, nil},
		{&stats.ImportantMessages, `SELECT COUNT(*) FROM messages WHERE important = ?`, []any{domain.ImportanceImportant.String()}},
		{&stats.AIResponses, `SELECT COUNT(*) FROM messages WHERE important = ?`, []any{domain.ImportanceAIResponse.String()}},
		{&stats.WhitelistedChats, `SELECT COUNT(*) FROM whitelisted_chats`, nil},
	}
	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dst, c.query, c.args...); err != nil {
			return nil, storageErr("stats", fmt.Errorf("failed to count: %w", err))
		}
	}

	var byChat []struct {
		ChatID int64 `db:"chat_id"`
		Count  int   `db:"count"`
	}
	err := r.db.SelectContext(ctx, &byChat, `
		SELECT chat_id, COUNT(*) AS count
		FROM messages
		GROUP BY chat_id
		ORDER BY count DESC, chat_id ASC
	`)
	if err != nil {
		return nil, storageErr("stats", fmt.Errorf("failed to count by chat: %w", err))
	}

	stats.MessagesByChat = make([]domain.ChatCount, 0, len(byChat))
	for _, c := range byChat {
		stats.MessagesByChat = append(stats.MessagesByChat, domain.ChatCount{ChatID: c.ChatID, Count: c.Count})
	}
	return stats, nil
}

// AddToWhitelist enables a chat
func (r *SQLiteRepo) AddToWhitelist(ctx context.Context, chatID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO whitelisted_chats (chat_id) VALUES (?)`, chatID)
	if err != nil {
		return false, storageErr("whitelist add", fmt.Errorf("failed to insert chat: %w", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("whitelist add", err)
	}
	return n > 0, nil
}

// RemoveFromWhitelist disables a chat
func (r *SQLiteRepo) RemoveFromWhitelist(ctx context.Context, chatID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM whitelisted_chats WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, storageErr("whitelist remove", fmt.Errorf("failed to delete chat: %w", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("whitelist remove", err)
	}
	return n > 0, nil
}

// IsWhitelisted checks if a chat is enabled
func (r *SQLiteRepo) IsWhitelisted(ctx context.Context, chatID int64) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM whitelisted_chats WHERE chat_id = ?`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("whitelist check", fmt.Errorf("failed to query whitelist: %w", err))
	}
	return true, nil
}

// Close closes the database
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}
