package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tgbizbot/bizbot/internal/biz/usecase"
	"github.com/tgbizbot/bizbot/internal/service"
)

// systemPromptFile is read when the prompts file sets no system prompt
const systemPromptFile = "system_prompt.txt"

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	SystemPrompt     string        `yaml:"system_prompt"`
	SystemPromptFile string        `yaml:"system_prompt_file"`
	Format           FormatPrompts `yaml:"format"`
	Triggers         TriggerConfig `yaml:"triggers"`
	Replies          service.Texts `yaml:"replies"`

	// Path the config was loaded from, empty for built-in defaults
	Source string `yaml:"-"`
}

// FormatPrompts contains the literals of the history format
type FormatPrompts struct {
	ImportantMarker string `yaml:"important_marker"`
	QuerySeparator  string `yaml:"query_separator"`
	AIName          string `yaml:"ai_name"`
	MediaAuthor     string `yaml:"media_author"`
	MediaTags       string `yaml:"media_tags"`
}

// TriggerConfig contains the words and flags recognized in messages
type TriggerConfig struct {
	Words           []string `yaml:"words"`
	ContextPrefixes []string `yaml:"context_prefixes"`
	ThinkFlags      []string `yaml:"think_flags"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/bizbot/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	config := DefaultPromptsConfig()

	var data []byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			config.Source = p
			break
		}
		if configPath != "" {
			return nil, fmt.Errorf("failed to read prompts file: %w", err)
		}
	}

	if data != nil {
		// Keys missing from the file keep their default value
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", config.Source, err)
		}
	}

	if err := config.loadSystemPrompt(); err != nil {
		return nil, err
	}
	config.fillDefaults()

	return config, nil
}

// loadSystemPrompt reads the plain-text system prompt when none is inline
func (c *PromptsConfig) loadSystemPrompt() error {
	if strings.TrimSpace(c.SystemPrompt) != "" {
		return nil
	}

	path := c.SystemPromptFile
	explicit := path != ""
	if !explicit {
		path = systemPromptFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return fmt.Errorf("failed to read system prompt: %w", err)
		}
		return nil
	}
	c.SystemPrompt = strings.TrimSpace(string(data))
	return nil
}

// fillDefaults fills in default values for fields set empty in the file
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Format.QuerySeparator == "" {
		c.Format.QuerySeparator = defaults.Format.QuerySeparator
	}
	if c.Format.AIName == "" {
		c.Format.AIName = defaults.Format.AIName
	}
	if c.Format.MediaAuthor == "" {
		c.Format.MediaAuthor = defaults.Format.MediaAuthor
	}

	if len(c.Triggers.Words) == 0 {
		c.Triggers.Words = defaults.Triggers.Words
	}
	if len(c.Triggers.ContextPrefixes) == 0 {
		c.Triggers.ContextPrefixes = defaults.Triggers.ContextPrefixes
	}
	if len(c.Triggers.ThinkFlags) == 0 {
		c.Triggers.ThinkFlags = defaults.Triggers.ThinkFlags
	}
}

// ToPromptConfig converts to the formatter literals
func (c *PromptsConfig) ToPromptConfig() usecase.PromptConfig {
	return usecase.PromptConfig{
		ImportantMarker: c.Format.ImportantMarker,
		QuerySeparator:  c.Format.QuerySeparator,
		AIName:          c.Format.AIName,
		MediaAuthor:     c.Format.MediaAuthor,
		MediaTags:       c.Format.MediaTags,
	}
}

// ToQueryTokens converts to the query parser tokens
func (c *PromptsConfig) ToQueryTokens() usecase.QueryTokens {
	return usecase.QueryTokens{
		ContextPrefixes: c.Triggers.ContextPrefixes,
		ThinkFlags:      c.Triggers.ThinkFlags,
	}
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	p := usecase.DefaultPromptConfig
	return &PromptsConfig{
		Format: FormatPrompts{
			ImportantMarker: p.ImportantMarker,
			QuerySeparator:  p.QuerySeparator,
			AIName:          p.AIName,
			MediaAuthor:     p.MediaAuthor,
			MediaTags:       p.MediaTags,
		},
		Triggers: TriggerConfig{
			Words:           append([]string(nil), service.DefaultTriggerWords...),
			ContextPrefixes: append([]string(nil), usecase.DefaultQueryTokens.ContextPrefixes...),
			ThinkFlags:      append([]string(nil), usecase.DefaultQueryTokens.ThinkFlags...),
		},
		Replies: service.DefaultTexts(),
	}
}
