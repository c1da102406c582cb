package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

const (
	activationAttempts = 30
	activationInterval = 500 * time.Millisecond
)

// ErrActivationTimeout is returned when an uploaded file never becomes ACTIVE
var ErrActivationTimeout = errors.New("uploaded file did not become active")

// File is a local media file attached to a request
type File struct {
	Path string
	MIME string
}

// Settings are the generation parameters
type Settings struct {
	SystemPrompt    string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
	GoogleSearch    bool
}

type fileService interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

type modelService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is the Gemini API client
type Client struct {
	models   modelService
	files    fileService
	settings Settings
	logger   *log.Logger

	attempts int
	interval time.Duration
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, apiKey string, settings Settings, logger *log.Logger) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newClient(gc.Models, gc.Files, settings, logger), nil
}

func newClient(models modelService, files fileService, settings Settings, logger *log.Logger) *Client {
	return &Client{
		models:   models,
		files:    files,
		settings: settings,
		logger:   logger.WithPrefix("gemini"),
		attempts: activationAttempts,
		interval: activationInterval,
	}
}

// Generate sends the prompt, with files uploaded first, and returns the answer text.
// Uploaded files are deleted before returning.
func (c *Client) Generate(ctx context.Context, model, prompt string, files []File) (string, error) {
	var parts []*genai.Part
	var uploaded []*genai.File

	defer func() {
		c.cleanup(uploaded)
	}()

	for _, f := range files {
		file, err := c.upload(ctx, f)
		if file != nil {
			uploaded = append(uploaded, file)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, genai.NewPartFromURI(file.URI, f.MIME))
	}

	if prompt != "" {
		parts = append(parts, genai.NewPartFromText(prompt))
	}
	if len(parts) == 0 {
		return "", errors.New("nothing to send: no text or media")
	}

	c.logger.Info("Sending request", "model", model, "parts", len(parts))
	resp, err := c.models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		c.generationConfig(),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}

func (c *Client) generationConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.settings.Temperature),
		TopP:             genai.Ptr(c.settings.TopP),
		TopK:             genai.Ptr(c.settings.TopK),
		MaxOutputTokens:  c.settings.MaxOutputTokens,
		ResponseMIMEType: "text/plain",
	}
	if c.settings.GoogleSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if c.settings.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.settings.SystemPrompt, genai.RoleUser)
	}
	return cfg
}

// upload returns the remote file even on activation failure so it can be deleted
func (c *Client) upload(ctx context.Context, f File) (*genai.File, error) {
	c.logger.Info("Uploading file", "path", f.Path, "mime", f.MIME)

	file, err := c.files.UploadFromPath(ctx, f.Path, &genai.UploadFileConfig{MIMEType: f.MIME})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Path, err)
	}

	if err := c.waitActive(ctx, file.Name); err != nil {
		return file, err
	}
	c.logger.Info("File is active", "name", file.Name)
	return file, nil
}

// waitActive polls a bounded number of times
func (c *Client) waitActive(ctx context.Context, name string) error {
	for i := 0; i < c.attempts; i++ {
		status, err := c.files.Get(ctx, name, nil)
		if err != nil {
			return fmt.Errorf("get file %s: %w", name, err)
		}
		if status.State == genai.FileStateActive {
			return nil
		}
		if status.State == genai.FileStateFailed {
			return fmt.Errorf("file %s processing failed", name)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.interval):
		}
	}
	return fmt.Errorf("%w: %s after %s", ErrActivationTimeout, name, time.Duration(c.attempts)*c.interval)
}

func (c *Client) cleanup(files []*genai.File) {
	if len(files) == 0 {
		return
	}
	// The request context may already be done
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, f := range files {
		if _, err := c.files.Delete(ctx, f.Name, nil); err != nil {
			c.logger.Error("Failed to delete uploaded file", "name", f.Name, "error", err)
			continue
		}
		c.logger.Info("Deleted uploaded file", "name", f.Name)
	}
}
