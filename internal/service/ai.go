package service

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/usecase"
)

var errEmptyAnswer = errors.New("empty answer")

func (s *BotService) handleAIRequest(ctx context.Context, in *inbound) error {
	if s.aiRepo == nil {
		s.reply(ctx, in, s.opts.Texts.AIKeyMissing, false)
		return nil
	}
	if !in.HasAuthor {
		return nil
	}
	ok, err := s.allowed(ctx, in)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("ignoring AI request in disabled chat", "chat_id", in.ChatID)
		return nil
	}

	if err := s.storeIncoming(ctx, in, domain.ImportanceDefault); err != nil {
		return err
	}

	q := s.parser.Parse(in.Content())
	msgs, err := s.historyUC.Retrieve(ctx, in.ChatID, q.Window)
	if err != nil {
		return err
	}

	req := &domain.AIRequest{
		RequestID: uuid.NewString(),
		Prompt:    s.contextUC.BuildPrompt(msgs, q.Text),
		Model:     modelFor(q),
	}
	s.logger.Info("AI request",
		"request_id", req.RequestID,
		"chat_id", in.ChatID,
		"window", q.Window,
		"history", len(msgs),
		"model", req.Model,
	)

	s.goBackground(ctx, "ai_request", func(ctx context.Context) {
		s.answer(ctx, in, req)
	})
	return nil
}

// answer sends the placeholder, calls the AI and stores the reply.
// Nothing is stored unless the answer reached the chat.
func (s *BotService) answer(ctx context.Context, in *inbound, req *domain.AIRequest) {
	logger := s.logger.With("request_id", req.RequestID)
	t := s.opts.Texts

	placeholder, err := s.chatRepo.Reply(ctx, in.Chat(), in.MessageID, t.Thinking, false)
	if err != nil {
		logger.Error("failed to send placeholder", "err", err)
		return
	}
	fail := func(err error) {
		text := t.ErrorMark + fill(t.RequestFailed, "error", err.Error())
		if err := s.edit(ctx, in.Chat(), placeholder, text, false); err != nil {
			logger.Error("failed to report AI error", "err", err)
		}
	}

	resp, err := s.generate(ctx, req)
	if err != nil {
		logger.Error("AI request failed", "err", err)
		fail(err)
		return
	}

	if req.Model == domain.ModelThinking {
		resp = t.ThinkingMark + resp
	}

	if err := s.deliver(ctx, in, placeholder, resp); err != nil {
		logger.Error("failed to deliver answer", "err", err)
		fail(err)
		return
	}

	cfg := s.contextUC.Config()
	if err := s.storeReply(ctx, in.ChatID, placeholder, cfg.AIName, "", resp); err != nil {
		logger.Error("failed to store AI answer", "err", err)
		return
	}
	logger.Info("AI answer stored", "length", len(resp))
}

// generate calls the AI, a blank answer counts as a transport failure
func (s *BotService) generate(ctx context.Context, req *domain.AIRequest) (string, error) {
	resp, err := s.aiRepo.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp) == "" {
		return "", &domain.AIError{Kind: domain.ErrAITransport, Err: errEmptyAnswer}
	}
	return resp, nil
}

// deliver edits the placeholder with the answer, overflow goes out as replies
func (s *BotService) deliver(ctx context.Context, in *inbound, placeholder int64, text string) error {
	chunks := usecase.ChunkText(text, usecase.MaxChunkLength)
	if err := s.edit(ctx, in.Chat(), placeholder, chunks[0], true); err != nil {
		return err
	}
	for _, chunk := range chunks[1:] {
		s.reply(ctx, in, chunk, true)
	}
	return nil
}

func (s *BotService) handleMedia(ctx context.Context, in *inbound) error {
	if s.aiRepo == nil {
		s.reply(ctx, in, s.opts.Texts.AIKeyMissing, false)
		return nil
	}
	if in.ReplyTo == nil {
		s.reply(ctx, in, s.opts.Texts.MediaNeedsReply, false)
		return nil
	}
	if !in.ReplyTo.Attachment.HasAnalyzableMedia() {
		s.reply(ctx, in, s.opts.Texts.MediaUnsupported, false)
		return nil
	}

	prompt := in.args
	if prompt == "" {
		prompt = s.opts.Texts.MediaDefaultPrompt
	}

	requestID := uuid.NewString()
	s.logger.Info("media request", "request_id", requestID, "chat_id", in.ChatID, "target", in.ReplyTo.MessageID)

	s.goBackground(ctx, "media", func(ctx context.Context) {
		s.analyzeMedia(ctx, in, prompt, requestID)
	})
	return nil
}

// analyzeMedia downloads the replied media and asks the multimodal model about it
func (s *BotService) analyzeMedia(ctx context.Context, in *inbound, prompt, requestID string) {
	logger := s.logger.With("request_id", requestID)
	t := s.opts.Texts

	status, err := s.chatRepo.Reply(ctx, in.Chat(), in.MessageID, t.MediaProcessing, false)
	if err != nil {
		logger.Error("failed to send status", "err", err)
		return
	}
	setStatus := func(text string) {
		if err := s.edit(ctx, in.Chat(), status, text, false); err != nil {
			logger.Error("failed to update status", "err", err)
		}
	}
	fail := func(err error) {
		setStatus(t.ErrorMark + fill(t.MediaFailed, "error", err.Error()))
	}

	if err := os.MkdirAll(s.opts.MediaDir, 0755); err != nil {
		logger.Error("failed to create media dir", "err", err)
		setStatus(t.MediaDownloadFailed)
		return
	}

	path, mime, err := s.chatRepo.DownloadMedia(ctx, in.ReplyTo, s.opts.MediaDir)
	if err != nil {
		logger.Error("media download failed", "err", err)
		setStatus(t.MediaDownloadFailed)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Error("failed to remove local media", "path", path, "err", err)
		}
	}()

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		setStatus(t.MediaEmpty)
		return
	}

	setStatus(fill(t.MediaUploading, "size", strconv.FormatInt(info.Size(), 10)))
	logger.Info("calling AI for media analysis", "path", path, "mime", mime, "size", info.Size())

	resp, err := s.generate(ctx, &domain.AIRequest{
		RequestID:  requestID,
		Prompt:     prompt,
		Model:      domain.ModelMultimodal,
		MediaPaths: []string{path},
		MediaMIME:  []string{mime},
	})
	if err != nil {
		logger.Error("media analysis failed", "err", err)
		fail(err)
		return
	}

	if err := s.deliver(ctx, in, status, resp); err != nil {
		logger.Error("failed to deliver media analysis", "err", err)
		fail(err)
		return
	}

	cfg := s.contextUC.Config()
	if err := s.storeReply(ctx, in.ChatID, status, cfg.MediaAuthor, cfg.MediaTags, resp); err != nil {
		logger.Error("failed to store media analysis", "err", err)
	}
}
