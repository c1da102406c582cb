package domain

import (
	"fmt"
	"strings"
	"time"
)

// IncomingMessage is a message event delivered by the messaging transport
type IncomingMessage struct {
	ChatID       int64
	ConnectionID string // Business connection the message arrived through, empty for chats of the bot
	MessageID    int64
	SenderID     int64
	Author       string // Sender display name
	HasAuthor    bool   // False for anonymous/channel posts
	Date         time.Time
	Text         string
	Caption      string
	Attachment   Attachments
	ReplyTo      *IncomingMessage
}

// ChatRef addresses a chat for outgoing messages
type ChatRef struct {
	ID           int64
	ConnectionID string
}

// Chat returns where answers to m must be sent
func (m *IncomingMessage) Chat() ChatRef {
	return ChatRef{ID: m.ChatID, ConnectionID: m.ConnectionID}
}

// Content returns the text, or the caption when there is no text
func (m *IncomingMessage) Content() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// HasContent checks if the message carries text or a caption
func (m *IncomingMessage) HasContent() bool {
	return m.Text != "" || m.Caption != ""
}

// AuthorName returns the display name or "unknown"
func (m *IncomingMessage) AuthorName() string {
	if !m.HasAuthor || m.Author == "" {
		return "unknown"
	}
	return m.Author
}

// Attachments describes what a message carries besides text.
// Only flags and metadata, never payloads.
type Attachments struct {
	Photo bool

	Voice         bool
	VoiceDuration int

	Document     bool
	DocumentName string
	DocumentSize int64
	DocumentMIME string

	Audio          bool
	AudioTitle     string
	AudioPerformer string
	AudioDuration  int
	AudioMIME      string

	Video         bool
	VideoDuration int

	VideoNote   bool
	Contact     bool
	ContactName string
	Location    bool
	Venue       bool
	Sticker     bool
	Animation   bool

	ForwardFromUser string // Full name of the original author
	ForwardFromChat string // Title of the original chat, used when no user
	IsForwardChat   bool

	ReplyToID int64

	SenderChatTitle string
	HasSenderChat   bool

	ViaBot string

	MediaFileID string // Transport handle of the analyzable media
	MediaMIME   string
}

// FormatDuration formats seconds as m:ss
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Tags renders the comma-joined observation list stored with a message
func (a Attachments) Tags() string {
	var tags []string

	if a.Photo {
		tags = append(tags, "contains photo")
	}
	if a.Voice {
		tags = append(tags, fmt.Sprintf("contains voice message of %s", FormatDuration(a.VoiceDuration)))
	}
	if a.Document {
		tags = append(tags, fmt.Sprintf("contains file %q (%d bytes)", a.DocumentName, a.DocumentSize))
	}
	if a.Audio {
		title := a.AudioTitle
		if title == "" {
			title = "unknown"
		}
		performer := a.AudioPerformer
		if performer == "" {
			performer = "unknown"
		}
		tags = append(tags, fmt.Sprintf("contains music %q %s of %s", title, performer, FormatDuration(a.AudioDuration)))
	}
	if a.Video {
		tags = append(tags, fmt.Sprintf("contains video of %s", FormatDuration(a.VideoDuration)))
	}
	if a.VideoNote {
		tags = append(tags, "contains video message")
	}
	if a.Contact {
		tags = append(tags, fmt.Sprintf("contains contact %q", a.ContactName))
	}
	if a.Location {
		tags = append(tags, "contains location")
	}
	if a.Venue {
		tags = append(tags, "contains venue")
	}
	if a.Sticker {
		tags = append(tags, "contains sticker")
	}
	if a.Animation {
		tags = append(tags, "contains animation")
	}
	if a.ForwardFromUser != "" {
		tags = append(tags, fmt.Sprintf("forwarded from %q", a.ForwardFromUser))
	} else if a.IsForwardChat {
		title := a.ForwardFromChat
		if title == "" {
			title = "unknown"
		}
		tags = append(tags, fmt.Sprintf("forwarded from %q", title))
	}
	if a.ReplyToID != 0 {
		tags = append(tags, fmt.Sprintf("in reply to message %d", a.ReplyToID))
	}
	if a.HasSenderChat {
		tags = append(tags, fmt.Sprintf("sent on behalf of channel %q", a.SenderChatTitle))
	}
	if a.ViaBot != "" {
		tags = append(tags, fmt.Sprintf("via bot %q", a.ViaBot))
	}

	return strings.Join(tags, ", ")
}

// HasAnalyzableMedia checks if the attachment can be sent for media analysis
func (a Attachments) HasAnalyzableMedia() bool {
	if a.Photo || a.Video || a.Voice || a.Audio || a.Animation || a.VideoNote {
		return true
	}
	if !a.Document || a.DocumentMIME == "" {
		return false
	}
	mime := a.DocumentMIME
	return strings.HasPrefix(mime, "image/") ||
		strings.HasPrefix(mime, "video/") ||
		strings.HasPrefix(mime, "audio/") ||
		mime == "application/ogg"
}
