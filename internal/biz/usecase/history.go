package usecase

import (
	"context"
	"fmt"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/repo"
)

const (
	// DefaultWindowSize is used when the query carries no context token
	DefaultWindowSize = 120
	// MaxWindowSize is the hard ceiling of the recent tier
	MaxWindowSize = 3000
)

// HistoryUsecase selects the messages presented to the AI as context
type HistoryUsecase struct {
	messageRepo repo.MessageRepo
}

// NewHistoryUsecase creates a new history usecase
func NewHistoryUsecase(messageRepo repo.MessageRepo) *HistoryUsecase {
	return &HistoryUsecase{messageRepo: messageRepo}
}

// ClampWindow bounds a requested window to [0, MaxWindowSize]
func ClampWindow(n int) int {
	if n > MaxWindowSize {
		return MaxWindowSize
	}
	if n < 1 {
		return 0
	}
	return n
}

// Retrieve returns the recent tier (newest first) followed by every
// important message of the chat (newest first).
// The tiers are disjoint, so pins are never dropped by the window.
func (uc *HistoryUsecase) Retrieve(ctx context.Context, chatID int64, windowSize int) ([]domain.Message, error) {
	msgs, err := uc.messageRepo.LastMessages(ctx, chatID, ClampWindow(windowSize))
	if err != nil {
		return nil, fmt.Errorf("retrieve history: %w", err)
	}
	return msgs, nil
}
