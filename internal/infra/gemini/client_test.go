package gemini

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

type mockFiles struct {
	activeAfter int // Get calls before the file turns active, -1 never
	gets        int
	deleted     []string
}

func (m *mockFiles) UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error) {
	return &genai.File{Name: "files/" + path, URI: "https://files/" + path, MIMEType: config.MIMEType}, nil
}

func (m *mockFiles) Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error) {
	m.gets++
	state := genai.FileStateProcessing
	if m.activeAfter >= 0 && m.gets > m.activeAfter {
		state = genai.FileStateActive
	}
	return &genai.File{Name: name, State: state}, nil
}

func (m *mockFiles) Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	m.deleted = append(m.deleted, name)
	return &genai.DeleteFileResponse{}, nil
}

type mockModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	err      error
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.model = model
	m.contents = contents
	m.config = config
	if m.err != nil {
		return nil, m.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("answer", genai.RoleModel)}},
	}, nil
}

func newTestClient(models *mockModels, files *mockFiles) *Client {
	c := newClient(models, files, Settings{
		SystemPrompt:    "be brief",
		Temperature:     1,
		TopP:            0.95,
		TopK:            60,
		MaxOutputTokens: 8192,
		GoogleSearch:    true,
	}, log.New(io.Discard))
	c.interval = time.Millisecond
	return c
}

func TestGenerate_TextOnly(t *testing.T) {
	models := &mockModels{}
	c := newTestClient(models, &mockFiles{})

	got, err := c.Generate(context.Background(), "gemini-flash-latest", "hello", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "answer" {
		t.Errorf("Expected answer, got %q", got)
	}
	if models.model != "gemini-flash-latest" {
		t.Errorf("Unexpected model %q", models.model)
	}
	if len(models.config.Tools) != 1 || models.config.Tools[0].GoogleSearch == nil {
		t.Error("Expected google search tool")
	}
	if *models.config.TopK != 60 || models.config.MaxOutputTokens != 8192 {
		t.Error("Unexpected generation settings")
	}
	if models.config.SystemInstruction == nil {
		t.Error("Expected system instruction")
	}
}

func TestGenerate_UploadsAndDeletesMedia(t *testing.T) {
	models := &mockModels{}
	files := &mockFiles{activeAfter: 2}
	c := newTestClient(models, files)

	_, err := c.Generate(context.Background(), "m", "describe", []File{{Path: "photo.jpg", MIME: "image/jpeg"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(models.contents) != 1 || len(models.contents[0].Parts) != 2 {
		t.Fatalf("Expected one content with media and text parts")
	}
	if models.contents[0].Parts[0].FileData == nil {
		t.Error("Expected media part first")
	}
	if len(files.deleted) != 1 || files.deleted[0] != "files/photo.jpg" {
		t.Errorf("Expected uploaded file deleted, got %v", files.deleted)
	}
}

func TestGenerate_ActivationTimeout(t *testing.T) {
	models := &mockModels{}
	files := &mockFiles{activeAfter: -1}
	c := newTestClient(models, files)

	_, err := c.Generate(context.Background(), "m", "describe", []File{{Path: "clip.mp4", MIME: "video/mp4"}})
	if !errors.Is(err, ErrActivationTimeout) {
		t.Fatalf("Expected ErrActivationTimeout, got %v", err)
	}
	if files.gets != activationAttempts {
		t.Errorf("Expected %d polls, got %d", activationAttempts, files.gets)
	}
	if models.model != "" {
		t.Error("Expected no generate call")
	}
	if len(files.deleted) != 1 {
		t.Errorf("Expected remote file cleanup, got %v", files.deleted)
	}
}

func TestGenerate_Empty(t *testing.T) {
	c := newTestClient(&mockModels{}, &mockFiles{})
	if _, err := c.Generate(context.Background(), "m", "", nil); err == nil {
		t.Error("Expected error for empty request")
	}
}

func TestGenerate_TransportError(t *testing.T) {
	models := &mockModels{err: errors.New("503")}
	c := newTestClient(models, &mockFiles{})

	if _, err := c.Generate(context.Background(), "m", "hi", nil); err == nil {
		t.Error("Expected error")
	}
}
