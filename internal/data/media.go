package data

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/tgbizbot/bizbot/internal/biz/domain"
)

// fallbackMimeTypes cover extensions missing from the system mime table
var fallbackMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/x-wav",
	".m4a":  "audio/mp4",
}

var audioExtensions = map[string]string{
	"audio/ogg":   ".ogg",
	"audio/mpeg":  ".mp3",
	"audio/x-wav": ".wav",
	"audio/webm":  ".webm",
}

// MimeTypeOf guesses the mime type of a file by extension
func MimeTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := fallbackMimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		// Drop parameters such as "; charset=utf-8"
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return "application/octet-stream"
}

// MediaFileName names the local copy of a message's media
func MediaFileName(msg *domain.IncomingMessage) string {
	a := msg.Attachment
	id := msg.MessageID

	switch {
	case a.Photo:
		return fmt.Sprintf("photo_%d.jpg", id)
	case a.Video:
		return fmt.Sprintf("video_%d.mp4", id)
	case a.Voice:
		return fmt.Sprintf("voice_%d.ogg", id)
	case a.Audio:
		ext, ok := audioExtensions[a.AudioMIME]
		if !ok {
			ext = ".ogg"
		}
		return fmt.Sprintf("audio_%d%s", id, ext)
	case a.Animation:
		return fmt.Sprintf("animation_%d.mp4", id)
	case a.VideoNote:
		return fmt.Sprintf("videonote_%d.mp4", id)
	case a.Document:
		return fmt.Sprintf("doc_%d%s", id, documentExtension(a))
	default:
		return fmt.Sprintf("media_%d", id)
	}
}

func documentExtension(a domain.Attachments) string {
	m := a.DocumentMIME
	switch {
	case m == "image/jpeg":
		return ".jpg"
	case strings.HasPrefix(m, "image/"):
		return ".png"
	case strings.HasPrefix(m, "video/"):
		return ".mp4"
	}
	if ext, ok := audioExtensions[m]; ok {
		return ext
	}
	if ext := filepath.Ext(a.DocumentName); ext != "" {
		return ext
	}
	return ""
}
