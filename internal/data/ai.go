package data

import (
	"context"
	"errors"
	"time"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/repo"
	"github.com/tgbizbot/bizbot/internal/infra/gemini"
	"github.com/tgbizbot/bizbot/internal/infra/openai"
)

// DefaultAITimeout bounds one AI call, uploads included
const DefaultAITimeout = 120 * time.Second

// ModelNames maps model kinds to provider model ids
type ModelNames map[domain.ModelKind]string

// Resolve returns the model id for kind, falling back to the flash model
func (n ModelNames) Resolve(kind domain.ModelKind) string {
	if name, ok := n[kind]; ok && name != "" {
		return name
	}
	return n[domain.ModelFlash]
}

type geminiGenerator interface {
	Generate(ctx context.Context, model, prompt string, files []gemini.File) (string, error)
}

type openaiChatter interface {
	Chat(ctx context.Context, model, prompt string, images []openai.Image) (string, error)
}

// geminiRepo implements the AI repository on Gemini
type geminiRepo struct {
	client  geminiGenerator
	models  ModelNames
	timeout time.Duration
}

// NewGeminiRepo creates a Gemini AI repository
func NewGeminiRepo(client *gemini.Client, models ModelNames, timeout time.Duration) repo.AIRepo {
	if client == nil {
		return nil
	}
	return &geminiRepo{client: client, models: models, timeout: orTimeout(timeout)}
}

func (r *geminiRepo) Generate(ctx context.Context, req *domain.AIRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	files := make([]gemini.File, 0, len(req.MediaPaths))
	for i, p := range req.MediaPaths {
		files = append(files, gemini.File{Path: p, MIME: mimeAt(req, i)})
	}

	resp, err := r.client.Generate(ctx, r.models.Resolve(req.Model), req.Prompt, files)
	if err != nil {
		return "", classifyAIError(ctx, err)
	}
	return resp, nil
}

// openaiRepo implements the AI repository on an OpenAI-compatible API
type openaiRepo struct {
	client  openaiChatter
	models  ModelNames
	timeout time.Duration
}

// NewOpenAIRepo creates an OpenAI-compatible AI repository
func NewOpenAIRepo(client *openai.Client, models ModelNames, timeout time.Duration) repo.AIRepo {
	if client == nil {
		return nil
	}
	return &openaiRepo{client: client, models: models, timeout: orTimeout(timeout)}
}

func (r *openaiRepo) Generate(ctx context.Context, req *domain.AIRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	images := make([]openai.Image, 0, len(req.MediaPaths))
	for i, p := range req.MediaPaths {
		images = append(images, openai.Image{Path: p, MIME: mimeAt(req, i)})
	}

	resp, err := r.client.Chat(ctx, r.models.Resolve(req.Model), req.Prompt, images)
	if err != nil {
		return "", classifyAIError(ctx, err)
	}
	return resp, nil
}

func mimeAt(req *domain.AIRequest, i int) string {
	if i < len(req.MediaMIME) && req.MediaMIME[i] != "" {
		return req.MediaMIME[i]
	}
	return MimeTypeOf(req.MediaPaths[i])
}

func orTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultAITimeout
	}
	return d
}

func classifyAIError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, gemini.ErrActivationTimeout):
		return &domain.AIError{Kind: domain.ErrUploadActivationTimeout, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.AIError{Kind: domain.ErrAITimeout, Err: err}
	default:
		return &domain.AIError{Kind: domain.ErrAITransport, Err: err}
	}
}
