package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgbizbot/bizbot/internal/biz/usecase"
	"github.com/tgbizbot/bizbot/internal/conf"
	"github.com/tgbizbot/bizbot/internal/data"
	"github.com/tgbizbot/bizbot/internal/server"
	"github.com/tgbizbot/bizbot/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "bizbot",
	Short:         "Telegram business bot with chat history context for AI requests",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "bot list file (config.yaml or config.json)")
	flags.String("prompts", "", "prompts and reply texts file")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("data-dir", "data", "default directory for databases and media")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("prompts", flags.Lookup("prompts"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("data_dir", flags.Lookup("data-dir"))

	viper.SetEnvPrefix("bizbot")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(runCmd, statsCmd, pinsCmd, previewCmd)

	for _, c := range []*cobra.Command{statsCmd, pinsCmd, previewCmd} {
		c.Flags().String("session", "", "bot session name from the config file")
		c.Flags().String("db", "", "database file, overrides --session")
	}
	pinsCmd.Flags().Int64("chat", 0, "chat id")
	previewCmd.Flags().Int64("chat", 0, "chat id")
	previewCmd.Flags().Int("context", usecase.DefaultWindowSize, "history window size")
	previewCmd.Flags().Bool("think", false, "use the thinking model")
}

func newLogger() *log.Logger {
	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		TimeFormat:      time.DateTime,
	})
}

func loadConfig() (*conf.Config, error) {
	return conf.Load(viper.GetString("config"), viper.GetString("prompts"), viper.GetString("data_dir"))
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start every configured bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Bots) == 0 {
			logger.Warn("No bots configured, nothing to run")
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if cfg.Prompts.Source != "" {
			logger.Info("Prompts loaded", "path", cfg.Prompts.Source)
		} else {
			logger.Info("No prompts file found, using defaults")
		}
		if cfg.Prompts.SystemPrompt == "" {
			logger.Warn("System prompt is empty")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("Starting bots", "count", len(cfg.Bots))
		err = server.NewRunner(cfg.Bots, cfg.Prompts, logger).Run(ctx)
		logger.Info("Shut down")
		return err
	},
}

// offline opens the database of one bot without connecting to Telegram
func offline(cmd *cobra.Command) (*service.BotService, *data.SQLiteRepo, error) {
	session, _ := cmd.Flags().GetString("session")
	dbPath, _ := cmd.Flags().GetString("db")

	bot := conf.BotConfig{SessionName: session}
	prompts := conf.DefaultPromptsConfig()

	cfg, err := loadConfig()
	if err == nil {
		prompts = cfg.Prompts
		for _, b := range cfg.Bots {
			if b.SessionName == session {
				bot = b
			}
		}
	} else if dbPath == "" {
		return nil, nil, err
	}

	if dbPath != "" {
		bot.DatabasePath = dbPath
	}
	if bot.DatabasePath == "" {
		return nil, nil, fmt.Errorf("unknown session %q, pass --db", session)
	}
	if bot.Models.Flash == "" {
		bot.Models = conf.DefaultModels[conf.ProviderGemini]
	}

	store, err := data.NewMessageRepo(cmd.Context(), bot.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	svc, err := server.NewBotService(&data.Repositories{Message: store, Whitelist: store}, bot, prompts, newLogger())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print storage statistics of one bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := offline(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total messages:  %d\n", stats.TotalMessages)
		fmt.Fprintf(out, "Pinned:          %d\n", stats.ImportantMessages)
		fmt.Fprintf(out, "AI responses:    %d\n", stats.AIResponses)
		fmt.Fprintf(out, "Active chats:    %d\n", stats.WhitelistedChats)
		for _, c := range stats.MessagesByChat {
			fmt.Fprintf(out, "  chat %d: %d\n", c.ChatID, c.Count)
		}
		return nil
	},
}

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "List pinned messages of a chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, _ := cmd.Flags().GetInt64("chat")
		_, store, err := offline(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		pins, err := store.PinnedMessages(cmd.Context(), chatID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range pins {
			fmt.Fprintf(out, "%d\tmsg %d\t%s\t%s\n", p.SequenceID, p.OriginMessageID, p.Author, p.Content)
		}
		fmt.Fprintf(out, "%d pinned\n", len(pins))
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <query>",
	Short: "Print the prompt a request would send, without calling the AI",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, _ := cmd.Flags().GetInt64("chat")
		window, _ := cmd.Flags().GetInt("context")
		think, _ := cmd.Flags().GetBool("think")

		svc, store, err := offline(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		preview, err := svc.BuildPreview(cmd.Context(), chatID, usecase.ParsedQuery{
			Text:   strings.Join(args, " "),
			Window: usecase.ClampWindow(window),
			Think:  think,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), preview.Render())
		return nil
	},
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
