package repo

import (
	"context"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// AIRepo is the generative AI interface
type AIRepo interface {
	// Generate runs one request and returns the answer text
	// Errors are *domain.AIError
	Generate(ctx context.Context, req *domain.AIRequest) (string, error)
}
