package biz

import (
	"time"

	"github.com/tgbizbot/bizbot/internal/biz/repo"
	"github.com/tgbizbot/bizbot/internal/biz/usecase"
)

// Usecases contains all usecases of one bot instance
type Usecases struct {
	History *usecase.HistoryUsecase
	Context *usecase.ContextBuilderUsecase
	Query   *usecase.QueryParser
}

// NewUsecases creates the usecases on top of the message repository
func NewUsecases(messageRepo repo.MessageRepo, prompt usecase.PromptConfig, tokens usecase.QueryTokens, loc *time.Location) *Usecases {
	return &Usecases{
		History: usecase.NewHistoryUsecase(messageRepo),
		Context: usecase.NewContextBuilderUsecase(prompt, loc),
		Query:   usecase.NewQueryParser(tokens),
	}
}
