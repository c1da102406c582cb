package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// Supported AI providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultModels are used when a bot config names no models
var DefaultModels = map[string]ModelsConfig{
	ProviderGemini: {
		Flash:      "gemini-flash-latest",
		Thinking:   "gemini-2.5-pro",
		Multimodal: "gemini-2.5-pro",
	},
	ProviderOpenAI: {
		Flash:      "gpt-4o-mini",
		Thinking:   "gpt-4o",
		Multimodal: "gpt-4o",
	},
}

// Config represents application configuration
type Config struct {
	Bots    []BotConfig
	Prompts *PromptsConfig
	DataDir string
}

// BotConfig is one entry of the bot list file
type BotConfig struct {
	SessionName  string        `yaml:"session_name"`
	BotToken     string        `yaml:"bot_token"`
	OwnerID      int64         `yaml:"owner_id"`
	DatabasePath string        `yaml:"database_path"`
	AIProvider   string        `yaml:"ai_provider"`
	AIAPIKey     string        `yaml:"ai_api_key"`
	AIBaseURL    string        `yaml:"ai_base_url"`
	AITimeout    time.Duration `yaml:"ai_timeout"`
	Models       ModelsConfig  `yaml:"models"`
	Timezone     string        `yaml:"timezone"`
	MediaDir     string        `yaml:"media_dir"`

	// Keys of the first version of the config file
	LegacyOwnerID   int64  `yaml:"bot_owner_id"`
	LegacyGeminiKey string `yaml:"gemini_api_key"`
}

// ModelsConfig contains model ids per request kind
type ModelsConfig struct {
	Flash      string `yaml:"flash"`
	Thinking   string `yaml:"thinking"`
	Multimodal string `yaml:"multimodal"`
}

// ModelNames returns the ids keyed by model kind
func (m ModelsConfig) ModelNames() map[domain.ModelKind]string {
	return map[domain.ModelKind]string{
		domain.ModelFlash:      m.Flash,
		domain.ModelThinking:   m.Thinking,
		domain.ModelMultimodal: m.Multimodal,
	}
}

// Load reads the bot list and the prompts file.
// An empty bot list is not an error, callers decide what to do with it.
func Load(configPath, promptsPath, dataDir string) (*Config, error) {
	if dataDir == "" {
		dataDir = "data"
	}

	bots, err := LoadBots(configPath)
	if err != nil {
		return nil, err
	}

	for i := range bots {
		bots[i].applyDefaults(dataDir)
	}

	prompts, err := LoadPromptsConfig(promptsPath)
	if err != nil {
		return nil, err
	}

	return &Config{Bots: bots, Prompts: prompts, DataDir: dataDir}, nil
}

// LoadBots parses the bot list, YAML or JSON
func LoadBots(path string) ([]BotConfig, error) {
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return nil, &ConfigError{Field: "config", Message: "no config.yaml or config.json found"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var bots []BotConfig
	if err := yaml.Unmarshal(data, &bots); err != nil {
		return nil, &ConfigError{Field: path, Message: fmt.Sprintf("expected a list of bot configurations: %v", err)}
	}
	return bots, nil
}

func findConfigFile() string {
	for _, p := range []string{"config.yaml", "config.yml", "config.json", "configs/config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (b *BotConfig) applyDefaults(dataDir string) {
	if b.OwnerID == 0 {
		b.OwnerID = b.LegacyOwnerID
	}
	if b.AIAPIKey == "" {
		b.AIAPIKey = b.LegacyGeminiKey
	}
	if b.AIProvider == "" {
		b.AIProvider = ProviderGemini
	}
	b.AIProvider = strings.ToLower(b.AIProvider)

	if b.DatabasePath == "" && b.SessionName != "" {
		b.DatabasePath = filepath.Join(dataDir, b.SessionName+".db")
	}
	if b.MediaDir == "" {
		b.MediaDir = filepath.Join(dataDir, "media")
	}

	defaults := DefaultModels[b.AIProvider]
	if b.Models.Flash == "" {
		b.Models.Flash = defaults.Flash
	}
	if b.Models.Thinking == "" {
		b.Models.Thinking = defaults.Thinking
	}
	if b.Models.Multimodal == "" {
		b.Models.Multimodal = defaults.Multimodal
	}
}

// HasAI checks if the bot has an AI key
func (b *BotConfig) HasAI() bool {
	return b.AIAPIKey != ""
}

// Location returns the time zone used in prompts, the host zone when unset
func (b *BotConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, &ConfigError{Field: b.SessionName + ".timezone", Message: err.Error()}
	}
	return loc, nil
}

// Validate validates one bot configuration
func (b *BotConfig) Validate() error {
	if b.SessionName == "" {
		return &ConfigError{Field: "session_name", Message: "required"}
	}
	if b.BotToken == "" {
		return &ConfigError{Field: b.SessionName + ".bot_token", Message: "required"}
	}
	if b.OwnerID == 0 {
		return &ConfigError{Field: b.SessionName + ".owner_id", Message: "required"}
	}
	if b.DatabasePath == "" {
		return &ConfigError{Field: b.SessionName + ".database_path", Message: "required"}
	}
	if b.AIProvider != ProviderGemini && b.AIProvider != ProviderOpenAI {
		return &ConfigError{Field: b.SessionName + ".ai_provider", Message: fmt.Sprintf("unknown provider %q", b.AIProvider)}
	}
	if _, err := b.Location(); err != nil {
		return err
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i := range c.Bots {
		b := &c.Bots[i]
		if err := b.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("bot #%d: %w", i+1, err))
			continue
		}
		if seen[b.SessionName] {
			errs = append(errs, &ConfigError{Field: b.SessionName, Message: "duplicate session_name"})
		}
		seen[b.SessionName] = true
	}
	return errors.Join(errs...)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
