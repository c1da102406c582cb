package server

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/tgbizbot/bizbot/internal/conf"
)

// Runner runs every configured bot concurrently
type Runner struct {
	bots    []conf.BotConfig
	prompts *conf.PromptsConfig
	logger  *log.Logger

	// Replaceable in tests
	start func(ctx context.Context, cfg conf.BotConfig) error
}

// NewRunner creates a runner for the given bots
func NewRunner(bots []conf.BotConfig, prompts *conf.PromptsConfig, logger *log.Logger) *Runner {
	r := &Runner{bots: bots, prompts: prompts, logger: logger}
	r.start = r.runInstance
	return r
}

// Run blocks until every instance has stopped.
// A failing instance is logged and does not stop the others.
// Returns the first instance error.
func (r *Runner) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, cfg := range r.bots {
		g.Go(func() error {
			if err := r.start(ctx, cfg); err != nil {
				r.logger.Error("Bot stopped with error", "session", cfg.SessionName, "err", err)
				return fmt.Errorf("bot %s: %w", cfg.SessionName, err)
			}
			return nil
		})
	}
	r.logger.Info("All bots launched", "count", len(r.bots))
	return g.Wait()
}

func (r *Runner) runInstance(ctx context.Context, cfg conf.BotConfig) error {
	inst, err := NewInstance(ctx, cfg, r.prompts, r.logger)
	if err != nil {
		return err
	}
	return inst.Run(ctx)
}
