package repo

import (
	"context"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// MessageRepo is the message store interface
// One store per bot instance, every failure is a *domain.StorageError
type MessageRepo interface {
	// Append stores a message and returns its sequence id
	Append(ctx context.Context, msg *domain.Message) (int64, error)

	// Pin marks a Default message as Important
	// Returns false when the id is absent or the message is not Default
	Pin(ctx context.Context, seq int64) (bool, error)

	// Unpin returns an Important message to Default
	Unpin(ctx context.Context, seq int64) (bool, error)

	// PinnedMessages gets all Important messages of a chat, newest first
	PinnedMessages(ctx context.Context, chatID int64) ([]domain.Message, error)

	// LastMessages gets the recent tier (at most limit Default or AIResponse
	// messages, newest first) followed by every Important message, newest first.
	// limit <= 0 skips the recent tier.
	LastMessages(ctx context.Context, chatID int64, limit int) ([]domain.Message, error)

	// Stats computes storage statistics
	Stats(ctx context.Context) (*domain.Stats, error)

	Close() error
}

// WhitelistRepo is the enabled-chats interface
type WhitelistRepo interface {
	// AddToWhitelist returns false when the chat was already enabled
	AddToWhitelist(ctx context.Context, chatID int64) (bool, error)

	// RemoveFromWhitelist returns false when the chat was not enabled
	RemoveFromWhitelist(ctx context.Context, chatID int64) (bool, error)

	IsWhitelisted(ctx context.Context, chatID int64) (bool, error)
}
