package domain

// ModelKind selects which configured model handles a request
type ModelKind string

const (
	ModelFlash      ModelKind = "flash"
	ModelThinking   ModelKind = "thinking"
	ModelMultimodal ModelKind = "multimodal"
)

// AIRequest represents one generation request
type AIRequest struct {
	RequestID  string
	Prompt     string
	Model      ModelKind
	MediaPaths []string // Local files to attach
	MediaMIME  []string // Optional, parallel to MediaPaths
}

// IsMedia checks if the request carries media
func (r *AIRequest) IsMedia() bool {
	return len(r.MediaPaths) > 0
}

// GenerationSettings are the sampling parameters sent with every request
type GenerationSettings struct {
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
	GoogleSearch    bool
}

// DefaultGenerationSettings returns the settings the bot has always used
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		Temperature:     1,
		TopP:            0.95,
		TopK:            60,
		MaxOutputTokens: 8192,
		GoogleSearch:    true,
	}
}
