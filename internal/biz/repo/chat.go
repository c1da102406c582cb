package repo

import (
	"context"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// ChatRepo is the messaging transport interface
type ChatRepo interface {
	// Reply sends text as a reply and returns the id of the sent message
	// replyTo = 0 sends a plain message
	Reply(ctx context.Context, chat domain.ChatRef, replyTo int64, text string, markdown bool) (int64, error)

	// Edit replaces the text of a message sent by the bot
	Edit(ctx context.Context, chat domain.ChatRef, msgID int64, text string, markdown bool) error

	// DownloadMedia saves the analyzable media of msg into dir
	// Returns the local path and the mime type
	DownloadMedia(ctx context.Context, msg *domain.IncomingMessage, dir string) (path string, mime string, err error)

	// Self returns the bot account id and username
	Self() (int64, string)
}
