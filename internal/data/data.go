package data

import (
	"context"

	"github.com/tgbizbot/bizbot/internal/biz/repo"
	"github.com/tgbizbot/bizbot/internal/infra/telegram"
)

// Repositories contains all repositories of one bot instance
type Repositories struct {
	Message   repo.MessageRepo
	Whitelist repo.WhitelistRepo
	Chat      repo.ChatRepo
	AI        repo.AIRepo // nil when the instance has no AI key
}

// NewRepositories creates all repositories
func NewRepositories(
	ctx context.Context,
	telegramClient *telegram.Client,
	ai repo.AIRepo,
	dbPath string,
) (*Repositories, error) {
	store, err := NewMessageRepo(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Message:   store,
		Whitelist: store,
		Chat:      NewTelegramRepo(telegramClient),
		AI:        ai,
	}, nil
}

// Close releases the storage handle
func (r *Repositories) Close() error {
	return r.Message.Close()
}
