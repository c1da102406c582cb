package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/usecase"
)

const (
	statsTopChats = 5
	pinPreviewLen = 100
	debugWindow   = 10
	pinDateLayout = "2006-01-02"
)

func (s *BotService) handleEnable(ctx context.Context, in *inbound) error {
	added, err := s.whitelistRepo.AddToWhitelist(ctx, in.ChatID)
	if err != nil {
		return err
	}
	s.logger.Info("chat enabled", "chat_id", in.ChatID, "changed", added)
	s.reply(ctx, in, lo.Ternary(added, s.opts.Texts.ChatEnabled, s.opts.Texts.ChatAlreadyEnabled), false)
	return nil
}

func (s *BotService) handleDisable(ctx context.Context, in *inbound) error {
	removed, err := s.whitelistRepo.RemoveFromWhitelist(ctx, in.ChatID)
	if err != nil {
		return err
	}
	s.logger.Info("chat disabled", "chat_id", in.ChatID, "changed", removed)
	s.reply(ctx, in, lo.Ternary(removed, s.opts.Texts.ChatDisabled, s.opts.Texts.ChatAlreadyDisabled), false)
	return nil
}

func (s *BotService) handleStats(ctx context.Context, in *inbound) error {
	stats, err := s.messageRepo.Stats(ctx)
	if err != nil {
		return err
	}
	s.reply(ctx, in, FormatStats(stats, s.opts.Texts), true)
	return nil
}

// FormatStats renders storage statistics with the top chats
func FormatStats(stats *domain.Stats, t Texts) string {
	var sb strings.Builder
	sb.WriteString(fill(t.StatsTemplate,
		"total", strconv.Itoa(stats.TotalMessages),
		"important", strconv.Itoa(stats.ImportantMessages),
		"ai", strconv.Itoa(stats.AIResponses),
		"chats", strconv.Itoa(stats.WhitelistedChats),
	))

	top := stats.TopChats(statsTopChats)
	if len(top) > 0 {
		sb.WriteString(t.StatsByChat)
		lines := lo.Map(top, func(c domain.ChatCount, _ int) string {
			return fill(t.StatsChatLine, "chat_id", strconv.FormatInt(c.ChatID, 10), "count", strconv.Itoa(c.Count))
		})
		sb.WriteString(strings.Join(lines, ""))
	}
	return sb.String()
}

func (s *BotService) handlePins(ctx context.Context, in *inbound) error {
	pins, err := s.messageRepo.PinnedMessages(ctx, in.ChatID)
	if err != nil {
		return err
	}
	if len(pins) == 0 {
		s.reply(ctx, in, s.opts.Texts.NoPins, false)
		return nil
	}
	s.reply(ctx, in, FormatPins(pins, s.opts.Texts, s.contextUC.Location()), true)
	return nil
}

// FormatPins renders the pinned messages listing, dates in loc
func FormatPins(pins []domain.Message, t Texts, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(fill(t.PinsHeader, "count", strconv.Itoa(len(pins))))
	for i := range pins {
		p := &pins[i]
		sb.WriteString(fill(t.PinsEntry,
			"id", strconv.FormatInt(p.SequenceID, 10),
			"msg_id", strconv.FormatInt(p.OriginMessageID, 10),
			"author", p.Author,
			"date", pinDate(p, loc),
			"preview", truncate(p.Content, pinPreviewLen),
		))
	}
	sb.WriteString(t.PinsFooter)
	return sb.String()
}

func pinDate(m *domain.Message, loc *time.Location) string {
	if !m.Timestamp.IsZero() {
		return m.Timestamp.In(loc).Format(pinDateLayout)
	}
	if utf8.RuneCountInString(m.RawTimestamp) > len(pinDateLayout) {
		return string([]rune(m.RawTimestamp)[:len(pinDateLayout)])
	}
	return m.RawTimestamp
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// sequenceArg parses the first argument as a sequence id
func (s *BotService) sequenceArg(ctx context.Context, in *inbound, usage string) (int64, bool) {
	fields := strings.Fields(in.args)
	if len(fields) == 0 {
		s.reply(ctx, in, usage, true)
		return 0, false
	}
	seq, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		s.reply(ctx, in, s.opts.Texts.IDNotNumber, false)
		return 0, false
	}
	return seq, true
}

func (s *BotService) handleUnpin(ctx context.Context, in *inbound) error {
	seq, ok := s.sequenceArg(ctx, in, s.opts.Texts.UnpinUsage)
	if !ok {
		return nil
	}
	changed, err := s.messageRepo.Unpin(ctx, seq)
	if err != nil {
		return err
	}
	s.logger.Info("unpin", "sequence_id", seq, "changed", changed)
	s.reply(ctx, in, lo.Ternary(changed, s.opts.Texts.Unpinned, s.opts.Texts.UnpinFailed), false)
	return nil
}

func (s *BotService) handlePin(ctx context.Context, in *inbound) error {
	seq, ok := s.sequenceArg(ctx, in, s.opts.Texts.PinUsage)
	if !ok {
		return nil
	}
	changed, err := s.messageRepo.Pin(ctx, seq)
	if err != nil {
		return err
	}
	s.logger.Info("pin", "sequence_id", seq, "changed", changed)
	s.reply(ctx, in, lo.Ternary(changed, s.opts.Texts.Pinned, s.opts.Texts.PinFailed), false)
	return nil
}

func (s *BotService) handleDebug(ctx context.Context, in *inbound) error {
	msgs, err := s.historyUC.Retrieve(ctx, in.ChatID, debugWindow)
	if err != nil {
		return err
	}
	s.reply(ctx, in, s.opts.Texts.DebugHeader+s.contextUC.FormatHistory(msgs), false)
	return nil
}

// BuildPreview assembles the prompt a request would send, without calling the AI
func (s *BotService) BuildPreview(ctx context.Context, chatID int64, q usecase.ParsedQuery) (*usecase.Preview, error) {
	msgs, err := s.historyUC.Retrieve(ctx, chatID, q.Window)
	if err != nil {
		return nil, err
	}
	return &usecase.Preview{
		SystemPrompt: s.opts.SystemPrompt,
		Prompt:       s.contextUC.BuildPrompt(msgs, q.Text),
		Model:        s.opts.ModelNames[modelFor(q)],
		Window:       q.Window,
		HistoryCount: len(msgs),
		Settings:     s.opts.Settings,
	}, nil
}

// ParseQuery parses the text of a trigger message
func (s *BotService) ParseQuery(raw string) usecase.ParsedQuery {
	return s.parser.Parse(raw)
}

func modelFor(q usecase.ParsedQuery) domain.ModelKind {
	if q.Think {
		return domain.ModelThinking
	}
	return domain.ModelFlash
}

func (s *BotService) handleTest(ctx context.Context, in *inbound) error {
	preview, err := s.BuildPreview(ctx, in.ChatID, s.parser.Parse(in.Content()))
	if err != nil {
		return err
	}

	chunks := usecase.ChunkText(preview.Render(), usecase.MaxChunkLength)
	if len(chunks) == 1 {
		s.reply(ctx, in, chunks[0], false)
		return nil
	}

	s.reply(ctx, in, s.opts.Texts.PreviewChunked, false)
	for i, chunk := range chunks {
		header := fill(s.opts.Texts.PreviewChunk, "index", strconv.Itoa(i+1), "total", strconv.Itoa(len(chunks)))
		s.reply(ctx, in, header+chunk, false)
	}
	return nil
}

func (s *BotService) handleMarkImportant(ctx context.Context, in *inbound) error {
	if err := s.storeIncoming(ctx, in, domain.ImportanceImportant); err != nil {
		return err
	}
	s.logger.Info("marked as important", "chat_id", in.ChatID, "message_id", in.MessageID)
	s.reply(ctx, in, s.opts.Texts.MarkedImportant, false)
	return nil
}

func (s *BotService) handleStore(ctx context.Context, in *inbound) error {
	if !in.HasContent() {
		return nil
	}
	ok, err := s.allowed(ctx, in)
	if err != nil || !ok {
		return err
	}
	if err := s.storeIncoming(ctx, in, domain.ImportanceDefault); err != nil {
		return err
	}
	s.logger.Debug("stored message", "chat_id", in.ChatID, "message_id", in.MessageID, "author", in.AuthorName())
	return nil
}

// storeReply persists a bot answer as an AI response
func (s *BotService) storeReply(ctx context.Context, chatID, msgID int64, author, tags, content string) error {
	_, err := s.messageRepo.Append(ctx, &domain.Message{
		ChatID:          chatID,
		OriginMessageID: msgID,
		Author:          author,
		Timestamp:       time.Now(),
		Content:         content,
		Tags:            tags,
		Importance:      domain.ImportanceAIResponse,
	})
	return err
}
