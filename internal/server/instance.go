package server

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-telegram/bot/models"

	"github.com/tgbizbot/bizbot/internal/biz"
	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/repo"
	"github.com/tgbizbot/bizbot/internal/conf"
	"github.com/tgbizbot/bizbot/internal/data"
	"github.com/tgbizbot/bizbot/internal/infra/gemini"
	"github.com/tgbizbot/bizbot/internal/infra/openai"
	"github.com/tgbizbot/bizbot/internal/infra/telegram"
	"github.com/tgbizbot/bizbot/internal/service"
)

// Instance is one running bot account
type Instance struct {
	cfg    conf.BotConfig
	client *telegram.Client
	repos  *data.Repositories
	svc    *service.BotService
	logger *log.Logger
}

// NewInstance authenticates the bot, opens its database and wires the service
func NewInstance(ctx context.Context, cfg conf.BotConfig, prompts *conf.PromptsConfig, logger *log.Logger) (*Instance, error) {
	logger = logger.With("session", cfg.SessionName)

	client, err := telegram.NewClient(ctx, cfg.BotToken, logger)
	if err != nil {
		return nil, err
	}
	id, username := client.Self()
	logger.Info("Authorized", "bot_id", id, "username", username)

	aiRepo, err := newAIRepo(ctx, cfg, prompts, logger)
	if err != nil {
		return nil, err
	}

	repos, err := data.NewRepositories(ctx, client, aiRepo, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	logger.Info("Database ready", "path", cfg.DatabasePath)

	svc, err := NewBotService(repos, cfg, prompts, logger)
	if err != nil {
		repos.Close()
		return nil, err
	}

	return &Instance{cfg: cfg, client: client, repos: repos, svc: svc, logger: logger}, nil
}

// NewBotService builds the service of one bot on top of its repositories.
// Chat and AI may be nil for offline use such as previews.
func NewBotService(repos *data.Repositories, cfg conf.BotConfig, prompts *conf.PromptsConfig, logger *log.Logger) (*service.BotService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	uc := biz.NewUsecases(repos.Message, prompts.ToPromptConfig(), prompts.ToQueryTokens(), loc)

	opts := service.Options{
		OwnerID:      cfg.OwnerID,
		SystemPrompt: prompts.SystemPrompt,
		Settings:     domain.DefaultGenerationSettings(),
		ModelNames:   cfg.Models.ModelNames(),
		MediaDir:     cfg.MediaDir,
		TriggerWords: prompts.Triggers.Words,
		Texts:        prompts.Replies,
	}

	return service.NewBotService(
		repos.Message,
		repos.Whitelist,
		repos.Chat,
		repos.AI,
		uc.History,
		uc.Context,
		uc.Query,
		opts,
		logger.WithPrefix("service"),
	), nil
}

// newAIRepo creates the configured AI provider, nil when the bot has no key
func newAIRepo(ctx context.Context, cfg conf.BotConfig, prompts *conf.PromptsConfig, logger *log.Logger) (repo.AIRepo, error) {
	if !cfg.HasAI() {
		logger.Warn("No AI key configured, AI features are disabled")
		return nil, nil
	}

	settings := domain.DefaultGenerationSettings()
	models := data.ModelNames(cfg.Models.ModelNames())

	switch cfg.AIProvider {
	case conf.ProviderOpenAI:
		client := openai.NewClient(cfg.AIAPIKey, cfg.AIBaseURL, openai.Settings{
			SystemPrompt: prompts.SystemPrompt,
			Temperature:  settings.Temperature,
			TopP:         settings.TopP,
			MaxTokens:    int(settings.MaxOutputTokens),
		}, logger)
		logger.Info("AI provider ready", "provider", cfg.AIProvider, "base_url", cfg.AIBaseURL)
		return data.NewOpenAIRepo(client, models, cfg.AITimeout), nil

	case conf.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.AIAPIKey, gemini.Settings{
			SystemPrompt:    prompts.SystemPrompt,
			Temperature:     settings.Temperature,
			TopP:            settings.TopP,
			TopK:            settings.TopK,
			MaxOutputTokens: settings.MaxOutputTokens,
			GoogleSearch:    settings.GoogleSearch,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		logger.Info("AI provider ready", "provider", cfg.AIProvider)
		return data.NewGeminiRepo(client, models, cfg.AITimeout), nil
	}

	return nil, &conf.ConfigError{Field: cfg.SessionName + ".ai_provider", Message: "unknown provider " + cfg.AIProvider}
}

// Run feeds updates to the service until ctx is done, then drains
// in-flight requests and closes the database
func (i *Instance) Run(ctx context.Context) error {
	defer func() {
		i.svc.Wait()
		if err := i.repos.Close(); err != nil {
			i.logger.Error("Failed to close database", "err", err)
		}
		i.logger.Info("Stopped")
	}()

	return i.client.Start(ctx, telegram.Handlers{
		Message: func(ctx context.Context, msg *models.Message) {
			in := data.IncomingFromTelegram(msg)
			if in == nil {
				return
			}
			if err := i.svc.HandleMessage(ctx, in); err != nil {
				i.logger.Warn("Message not handled", "chat_id", in.ChatID, "message_id", in.MessageID, "err", err)
			}
		},
		Connection: i.onConnection,
	})
}

// onConnection logs business connections, commands only work for the owner account
func (i *Instance) onConnection(ctx context.Context, conn *models.BusinessConnection) {
	if conn.User.ID != i.cfg.OwnerID {
		i.logger.Warn("Business connection from an account that is not the owner", "connection_id", conn.ID, "user_id", conn.User.ID)
		return
	}
	i.logger.Info("Owner account connected", "connection_id", conn.ID, "enabled", conn.IsEnabled)
}
