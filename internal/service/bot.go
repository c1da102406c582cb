package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/repo"
	"github.com/tgbizbot/bizbot/internal/biz/usecase"
)

// DefaultTriggerWords start an AI request when found anywhere in a message
var DefaultTriggerWords = []string{"gemini", "гемини"}

// Options configures one bot service
type Options struct {
	OwnerID      int64
	SystemPrompt string
	Settings     domain.GenerationSettings
	ModelNames   map[domain.ModelKind]string // Display only, used by previews
	MediaDir     string
	TriggerWords []string
	Texts        Texts
}

// BotService routes incoming messages of one bot instance
type BotService struct {
	messageRepo   repo.MessageRepo
	whitelistRepo repo.WhitelistRepo
	chatRepo      repo.ChatRepo
	aiRepo        repo.AIRepo // nil disables AI features

	historyUC *usecase.HistoryUsecase
	contextUC *usecase.ContextBuilderUsecase
	parser    *usecase.QueryParser

	opts      Options
	triggerRe *regexp.Regexp
	markCmds  []string
	routes    []route
	logger    *log.Logger

	// In-flight AI and media work
	wg sync.WaitGroup
}

// route is one entry of the ordered routing table, the first match wins
type route struct {
	name   string
	match  func(*inbound) bool
	handle func(context.Context, *inbound) error
}

// inbound is an incoming message with its command split off
type inbound struct {
	*domain.IncomingMessage
	command string // Lowercased command name without "!", empty if none
	args    string
	owner   bool
}

// NewBotService creates a new bot service
func NewBotService(
	messageRepo repo.MessageRepo,
	whitelistRepo repo.WhitelistRepo,
	chatRepo repo.ChatRepo,
	aiRepo repo.AIRepo,
	historyUC *usecase.HistoryUsecase,
	contextUC *usecase.ContextBuilderUsecase,
	parser *usecase.QueryParser,
	opts Options,
	logger *log.Logger,
) *BotService {
	if len(opts.TriggerWords) == 0 {
		opts.TriggerWords = DefaultTriggerWords
	}
	if opts.MediaDir == "" {
		opts.MediaDir = "data/media"
	}
	if parser == nil {
		parser = usecase.NewQueryParser(usecase.DefaultQueryTokens)
	}

	s := &BotService{
		messageRepo:   messageRepo,
		whitelistRepo: whitelistRepo,
		chatRepo:      chatRepo,
		aiRepo:        aiRepo,
		historyUC:     historyUC,
		contextUC:     contextUC,
		parser:        parser,
		opts:          opts,
		triggerRe:     triggerPattern(opts.TriggerWords),
		markCmds:      lo.Uniq(lo.Map(opts.TriggerWords, func(w string, _ int) string { return strings.ToLower(w) })),
		logger:        logger,
	}
	s.routes = s.buildRoutes()
	return s
}

func triggerPattern(words []string) *regexp.Regexp {
	quoted := lo.Map(words, func(w string, _ int) string { return regexp.QuoteMeta(w) })
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// buildRoutes returns the routing table in evaluation order
func (s *BotService) buildRoutes() []route {
	return []route{
		{"enable", s.ownerCommand("enable"), s.handleEnable},
		{"disable", s.ownerCommand("disable"), s.handleDisable},
		{"stats", s.ownerCommand("stats"), s.handleStats},
		{"pins", s.ownerCommand("pins"), s.handlePins},
		{"unpin", s.ownerCommand("unpin"), s.handleUnpin},
		{"pin", s.ownerCommand("pin"), s.handlePin},
		{"debug", s.ownerCommand("debug"), s.handleDebug},
		{"test", s.ownerCommand("test"), s.handleTest},
		{"media", func(in *inbound) bool { return in.command == "media" }, s.handleMedia},
		{"mark_important", func(in *inbound) bool { return in.owner && lo.Contains(s.markCmds, in.command) }, s.handleMarkImportant},
		{"ai_request", func(in *inbound) bool { return s.triggerRe.MatchString(in.Content()) }, s.handleAIRequest},
		{"store", func(*inbound) bool { return true }, s.handleStore},
	}
}

func (s *BotService) ownerCommand(name string) func(*inbound) bool {
	return func(in *inbound) bool {
		return in.owner && in.command == name
	}
}

// IsOwner checks if the message was sent by the configured owner
func (s *BotService) IsOwner(msg *domain.IncomingMessage) bool {
	return msg.HasAuthor && msg.SenderID == s.opts.OwnerID
}

// HandleMessage dispatches one incoming message.
// Storage writes of the message itself happen before it returns, slower AI
// work continues in the background.
func (s *BotService) HandleMessage(ctx context.Context, msg *domain.IncomingMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "chat_id", msg.ChatID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	in := s.inbound(msg)
	for _, r := range s.routes {
		if !r.match(in) {
			continue
		}
		if err := r.handle(ctx, in); err != nil {
			s.logger.Error("handler failed", "route", r.name, "chat_id", msg.ChatID, "err", err)
			if in.owner && errors.Is(err, domain.ErrStorageUnavailable) {
				s.reply(ctx, in, s.opts.Texts.StorageFailed, false)
			}
			return fmt.Errorf("%s: %w", r.name, err)
		}
		return nil
	}
	return nil
}

func (s *BotService) inbound(msg *domain.IncomingMessage) *inbound {
	in := &inbound{IncomingMessage: msg, owner: s.IsOwner(msg)}
	in.command, in.args = parseCommand(msg.Content())
	return in
}

// parseCommand splits "!name@bot args" into its name and arguments
func parseCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "!") {
		return "", ""
	}
	body := text[1:]
	head, args := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		head, args = body[:i], strings.TrimSpace(body[i:])
	}
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), args
}

// Wait blocks until all background work has finished
func (s *BotService) Wait() {
	s.wg.Wait()
}

// goBackground runs fn detached from the update loop.
// Work is not cancelled when the instance stops, Wait lets it drain.
func (s *BotService) goBackground(ctx context.Context, name string, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("background panic", "task", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn(ctx)
	}()
}

// reply sends text in reply to in, errors are logged
func (s *BotService) reply(ctx context.Context, in *inbound, text string, markdown bool) int64 {
	id, err := s.chatRepo.Reply(ctx, in.Chat(), in.MessageID, text, markdown)
	if err != nil && markdown {
		s.logger.Warn("markdown reply rejected, sending plain text", "chat_id", in.ChatID, "err", err)
		id, err = s.chatRepo.Reply(ctx, in.Chat(), in.MessageID, text, false)
	}
	if err != nil {
		s.logger.Error("failed to send reply", "chat_id", in.ChatID, "err", err)
	}
	return id
}

// edit replaces the text of a bot message, Markdown first then plain text
func (s *BotService) edit(ctx context.Context, chat domain.ChatRef, msgID int64, text string, markdown bool) error {
	err := s.chatRepo.Edit(ctx, chat, msgID, text, markdown)
	if err != nil && markdown {
		s.logger.Warn("markdown edit rejected, sending plain text", "chat_id", chat.ID, "err", err)
		err = s.chatRepo.Edit(ctx, chat, msgID, text, false)
	}
	return err
}

// storeIncoming persists msg with the given importance
func (s *BotService) storeIncoming(ctx context.Context, in *inbound, importance domain.Importance) error {
	_, err := s.messageRepo.Append(ctx, &domain.Message{
		ChatID:          in.ChatID,
		OriginMessageID: in.MessageID,
		Author:          in.AuthorName(),
		Timestamp:       in.Date,
		Content:         in.Content(),
		Tags:            in.Attachment.Tags(),
		Importance:      importance,
	})
	return err
}

// allowed checks if the message may be stored or answered
func (s *BotService) allowed(ctx context.Context, in *inbound) (bool, error) {
	if in.owner {
		return true, nil
	}
	return s.whitelistRepo.IsWhitelisted(ctx, in.ChatID)
}
