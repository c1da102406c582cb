package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// errNoMessage is returned by Send when Telegram answers without a message
var errNoMessage = errors.New("telegram returned no message")

// Handlers are the callbacks for received updates
type Handlers struct {
	// Message gets chat messages, channel posts and business messages
	Message func(ctx context.Context, msg *models.Message)

	// Connection gets business connection changes, may be nil
	Connection func(ctx context.Context, conn *models.BusinessConnection)
}

// Client is the Telegram Bot API client.
// Business messages carry the connection id of the account they arrived through,
// answers sent with that id appear on behalf of the account.
type Client struct {
	api      *bot.Bot
	http     *http.Client
	logger   *log.Logger
	self     *models.User
	handlers Handlers
}

// NewClient authenticates with the bot token
func NewClient(ctx context.Context, token string, logger *log.Logger, opts ...bot.Option) (*Client, error) {
	c := &Client{
		http:   &http.Client{Timeout: 5 * time.Minute},
		logger: logger.WithPrefix("telegram"),
	}

	opts = append([]bot.Option{
		bot.WithDefaultHandler(c.dispatch),
		bot.WithErrorsHandler(func(err error) {
			c.logger.Warn("Polling error", "err", err)
		}),
		// One worker keeps updates in arrival order
		bot.WithWorkers(1),
		bot.WithSkipGetMe(),
	}, opts...)

	api, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	c.api = api

	me, err := api.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	c.self = me

	return c, nil
}

// Self returns the bot account id and username
func (c *Client) Self() (int64, string) {
	return c.self.ID, c.self.Username
}

// Start long-polls updates and calls the handlers in arrival order.
// Blocks until ctx is done.
func (c *Client) Start(ctx context.Context, handlers Handlers) error {
	c.handlers = handlers
	c.logger.Info("Receiving updates", "bot", c.self.Username)
	c.api.Start(ctx)
	return nil
}

func (c *Client) dispatch(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if conn := update.BusinessConnection; conn != nil {
		c.logger.Info("Business connection", "id", conn.ID, "user_id", conn.User.ID, "enabled", conn.IsEnabled)
		if c.handlers.Connection != nil {
			c.handlers.Connection(ctx, conn)
		}
		return
	}

	msg := MessageOf(update)
	if msg == nil || c.handlers.Message == nil {
		return
	}
	c.logger.Debug("Received message", "chat_id", msg.Chat.ID, "message_id", msg.ID, "business", msg.BusinessConnectionID != "")
	c.handlers.Message(ctx, msg)
}

// MessageOf picks the message an update carries.
// Business messages sent by a bot on behalf of the account are skipped,
// they are the bot's own answers.
func MessageOf(update *models.Update) *models.Message {
	switch {
	case update.Message != nil:
		return update.Message
	case update.ChannelPost != nil:
		return update.ChannelPost
	case update.BusinessMessage != nil:
		if update.BusinessMessage.SenderBusinessBot != nil {
			return nil
		}
		return update.BusinessMessage
	}
	return nil
}

// Send sends text, optionally as a reply, and returns the sent message id.
// connectionID sends through a business connection.
func (c *Client) Send(ctx context.Context, chatID int64, connectionID string, replyTo int, text string, parseMode models.ParseMode) (int, error) {
	params := &bot.SendMessageParams{
		BusinessConnectionID: connectionID,
		ChatID:               chatID,
		Text:                 text,
		ParseMode:            parseMode,
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	sent, err := c.api.SendMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	if sent == nil || sent.ID == 0 {
		return 0, errNoMessage
	}
	return sent.ID, nil
}

// EditText replaces the text of a message sent by the bot
func (c *Client) EditText(ctx context.Context, chatID int64, connectionID string, msgID int, text string, parseMode models.ParseMode) error {
	_, err := c.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		BusinessConnectionID: connectionID,
		ChatID:               chatID,
		MessageID:            msgID,
		Text:                 text,
		ParseMode:            parseMode,
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// Download saves the file behind fileID to dest and returns its size
func (c *Client) Download(ctx context.Context, fileID, dest string) (int64, error) {
	file, err := c.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("get file: %w", err)
	}
	url := c.api.FileDownloadLink(file)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return n, fmt.Errorf("write file: %w", err)
	}
	c.logger.Debug("Downloaded file", "path", dest, "bytes", n)
	return n, nil
}
