package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
)

// ErrUnsupportedMedia is returned for attachments that are not images
var ErrUnsupportedMedia = errors.New("only image attachments are supported")

// Image is a local image attached to a request
type Image struct {
	Path string
	MIME string
}

// Settings are the generation parameters
type Settings struct {
	SystemPrompt string
	Temperature  float32
	TopP         float32
	MaxTokens    int
}

// Client is an OpenAI-compatible chat completion client
type Client struct {
	client   *openai.Client
	settings Settings
	logger   *log.Logger
}

// NewClient creates a client, baseURL empty means api.openai.com
func NewClient(apiKey, baseURL string, settings Settings, logger *log.Logger) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client:   openai.NewClientWithConfig(config),
		settings: settings,
		logger:   logger.WithPrefix("openai"),
	}
}

// Chat sends the prompt with optional images and returns the response
func (c *Client) Chat(ctx context.Context, model, prompt string, images []Image) (string, error) {
	user, err := userMessage(prompt, images)
	if err != nil {
		return "", err
	}

	var messages []openai.ChatCompletionMessage
	if c.settings.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.settings.SystemPrompt})
	}
	messages = append(messages, user)

	c.logger.Info("Sending request", "model", model, "images", len(images))
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.settings.Temperature,
		TopP:        c.settings.TopP,
		MaxTokens:   c.settings.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func userMessage(prompt string, images []Image) (openai.ChatCompletionMessage, error) {
	if len(images) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}, nil
	}

	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	for _, img := range images {
		url, err := dataURL(img)
		if err != nil {
			return openai.ChatCompletionMessage{}, err
		}
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto},
		})
	}
	if prompt != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: prompt})
	}

	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}, nil
}

func dataURL(img Image) (string, error) {
	if !strings.HasPrefix(img.MIME, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, img.MIME)
	}
	raw, err := os.ReadFile(img.Path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
