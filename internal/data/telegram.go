package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
	"github.com/tgbizbot/bizbot/internal/biz/repo"
	"github.com/tgbizbot/bizbot/internal/infra/telegram"
)

// ErrNoMedia is returned when a message carries nothing to download
var ErrNoMedia = errors.New("message has no downloadable media")

// telegramClient is the part of telegram.Client used by the repository
type telegramClient interface {
	Send(ctx context.Context, chatID int64, connectionID string, replyTo int, text string, parseMode models.ParseMode) (int, error)
	EditText(ctx context.Context, chatID int64, connectionID string, msgID int, text string, parseMode models.ParseMode) error
	Download(ctx context.Context, fileID, dest string) (int64, error)
	Self() (int64, string)
}

var _ telegramClient = (*telegram.Client)(nil)

// telegramRepo implements the chat repository on the Bot API
type telegramRepo struct {
	client telegramClient
}

// NewTelegramRepo creates a new Telegram repository
func NewTelegramRepo(client *telegram.Client) repo.ChatRepo {
	return &telegramRepo{client: client}
}

func parseMode(markdown bool) models.ParseMode {
	if markdown {
		return models.ParseModeMarkdownV1
	}
	return ""
}

// Reply sends text as a reply, through the business connection of chat if any
func (r *telegramRepo) Reply(ctx context.Context, chat domain.ChatRef, replyTo int64, text string, markdown bool) (int64, error) {
	id, err := r.client.Send(ctx, chat.ID, chat.ConnectionID, int(replyTo), text, parseMode(markdown))
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}

// Edit replaces the text of a sent message
func (r *telegramRepo) Edit(ctx context.Context, chat domain.ChatRef, msgID int64, text string, markdown bool) error {
	return r.client.EditText(ctx, chat.ID, chat.ConnectionID, int(msgID), text, parseMode(markdown))
}

// DownloadMedia saves the media of msg under dir
func (r *telegramRepo) DownloadMedia(ctx context.Context, msg *domain.IncomingMessage, dir string) (string, string, error) {
	a := msg.Attachment
	if a.MediaFileID == "" {
		return "", "", ErrNoMedia
	}

	name := MediaFileName(msg)
	path := filepath.Join(dir, name)
	if _, err := r.client.Download(ctx, a.MediaFileID, path); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("download media: %w", err)
	}

	mime := a.MediaMIME
	if mime == "" {
		mime = MimeTypeOf(path)
	}
	return path, mime, nil
}

// Self returns the bot account
func (r *telegramRepo) Self() (int64, string) {
	return r.client.Self()
}

// IncomingFromTelegram converts a Bot API message into the transport contract
func IncomingFromTelegram(m *models.Message) *domain.IncomingMessage {
	if m == nil {
		return nil
	}

	in := &domain.IncomingMessage{
		ChatID:       m.Chat.ID,
		ConnectionID: m.BusinessConnectionID,
		MessageID:    int64(m.ID),
		Date:         time.Unix(int64(m.Date), 0),
		Text:         m.Text,
		Caption:      m.Caption,
		Attachment:   attachmentsOf(m),
	}
	if m.From != nil {
		in.SenderID = m.From.ID
		in.Author = m.From.FirstName
		in.HasAuthor = true
	}
	if m.ReplyToMessage != nil {
		in.ReplyTo = IncomingFromTelegram(m.ReplyToMessage)
		if in.ReplyTo.ConnectionID == "" {
			in.ReplyTo.ConnectionID = in.ConnectionID
		}
	}
	return in
}

func fullName(u *models.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func attachmentsOf(m *models.Message) domain.Attachments {
	var a domain.Attachments

	if len(m.Photo) > 0 {
		a.Photo = true
		// Sizes are ordered smallest first
		a.MediaFileID = m.Photo[len(m.Photo)-1].FileID
		a.MediaMIME = "image/jpeg"
	}
	if m.Voice != nil {
		a.Voice = true
		a.VoiceDuration = int(m.Voice.Duration)
		a.MediaFileID = m.Voice.FileID
		a.MediaMIME = orDefault(m.Voice.MimeType, "audio/ogg")
	}
	if m.Document != nil {
		a.Document = true
		a.DocumentName = m.Document.FileName
		a.DocumentSize = int64(m.Document.FileSize)
		a.DocumentMIME = m.Document.MimeType
		if a.MediaFileID == "" {
			a.MediaFileID = m.Document.FileID
			a.MediaMIME = m.Document.MimeType
		}
	}
	if m.Audio != nil {
		a.Audio = true
		a.AudioTitle = m.Audio.Title
		a.AudioPerformer = m.Audio.Performer
		a.AudioDuration = int(m.Audio.Duration)
		a.AudioMIME = m.Audio.MimeType
		a.MediaFileID = m.Audio.FileID
		a.MediaMIME = m.Audio.MimeType
	}
	if m.Video != nil {
		a.Video = true
		a.VideoDuration = int(m.Video.Duration)
		a.MediaFileID = m.Video.FileID
		a.MediaMIME = orDefault(m.Video.MimeType, "video/mp4")
	}
	if m.VideoNote != nil {
		a.VideoNote = true
		if a.MediaFileID == "" {
			a.MediaFileID = m.VideoNote.FileID
			a.MediaMIME = "video/mp4"
		}
	}
	if m.Contact != nil {
		a.Contact = true
		a.ContactName = m.Contact.FirstName
	}
	a.Location = m.Location != nil
	a.Venue = m.Venue != nil
	a.Sticker = m.Sticker != nil
	if m.Animation != nil {
		a.Animation = true
		if a.MediaFileID == "" || a.Document {
			// Animations also arrive with a document
			a.MediaFileID = m.Animation.FileID
			a.MediaMIME = orDefault(m.Animation.MimeType, "video/mp4")
		}
	}
	forwardOrigin(m.ForwardOrigin, &a)
	if m.ReplyToMessage != nil {
		a.ReplyToID = int64(m.ReplyToMessage.ID)
	}
	if m.SenderChat != nil {
		a.HasSenderChat = true
		a.SenderChatTitle = m.SenderChat.Title
	}
	if m.ViaBot != nil {
		a.ViaBot = m.ViaBot.FirstName
	}

	return a
}

// forwardOrigin fills the forward tags, a user origin wins over a chat
func forwardOrigin(o *models.MessageOrigin, a *domain.Attachments) {
	if o == nil {
		return
	}
	switch {
	case o.MessageOriginUser != nil:
		a.ForwardFromUser = fullName(&o.MessageOriginUser.SenderUser)
	case o.MessageOriginHiddenUser != nil:
		a.ForwardFromUser = o.MessageOriginHiddenUser.SenderUserName
	case o.MessageOriginChat != nil:
		a.IsForwardChat = true
		a.ForwardFromChat = o.MessageOriginChat.SenderChat.Title
	case o.MessageOriginChannel != nil:
		a.IsForwardChat = true
		a.ForwardFromChat = o.MessageOriginChannel.Chat.Title
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
