package service

import "strings"

// Texts are the chat replies of the bot.
// Placeholders use the {{name}} form.
type Texts struct {
	ChatEnabled         string `yaml:"chat_enabled"`
	ChatAlreadyEnabled  string `yaml:"chat_already_enabled"`
	ChatDisabled        string `yaml:"chat_disabled"`
	ChatAlreadyDisabled string `yaml:"chat_already_disabled"`

	StatsTemplate string `yaml:"stats_template"` // {{total}} {{important}} {{ai}} {{chats}}
	StatsByChat   string `yaml:"stats_by_chat"`
	StatsChatLine string `yaml:"stats_chat_line"` // {{chat_id}} {{count}}

	NoPins     string `yaml:"no_pins"`
	PinsHeader string `yaml:"pins_header"` // {{count}}
	PinsEntry  string `yaml:"pins_entry"`  // {{id}} {{msg_id}} {{author}} {{date}} {{preview}}
	PinsFooter string `yaml:"pins_footer"`

	UnpinUsage  string `yaml:"unpin_usage"`
	PinUsage    string `yaml:"pin_usage"`
	IDNotNumber string `yaml:"id_not_number"`
	Unpinned    string `yaml:"unpinned"`
	UnpinFailed string `yaml:"unpin_failed"`
	Pinned      string `yaml:"pinned"`
	PinFailed   string `yaml:"pin_failed"`

	DebugHeader     string `yaml:"debug_header"`
	PreviewChunked  string `yaml:"preview_chunked"`
	PreviewChunk    string `yaml:"preview_chunk"` // {{index}} {{total}}
	MarkedImportant string `yaml:"marked_important"`

	AIKeyMissing  string `yaml:"ai_key_missing"`
	Thinking      string `yaml:"thinking"`
	ErrorMark     string `yaml:"error_mark"`
	RequestFailed string `yaml:"request_failed"` // {{error}}
	ThinkingMark  string `yaml:"thinking_mark"`
	StorageFailed string `yaml:"storage_failed"`

	MediaNeedsReply     string `yaml:"media_needs_reply"`
	MediaUnsupported    string `yaml:"media_unsupported"`
	MediaDefaultPrompt  string `yaml:"media_default_prompt"`
	MediaProcessing     string `yaml:"media_processing"`
	MediaDownloadFailed string `yaml:"media_download_failed"`
	MediaEmpty          string `yaml:"media_empty"`
	MediaUploading      string `yaml:"media_uploading"` // {{size}}
	MediaFailed         string `yaml:"media_failed"`    // {{error}}
}

// DefaultTexts returns the built-in replies
func DefaultTexts() Texts {
	return Texts{
		ChatEnabled:         "Chat enabled ✅",
		ChatAlreadyEnabled:  "Chat already enabled ✅",
		ChatDisabled:        "Chat disabled ❌",
		ChatAlreadyDisabled: "Chat already disabled ❌",

		StatsTemplate: "📊 **Database statistics**\n\n" +
			"📨 Total messages: **{{total}}**\n" +
			"⭐ Pinned (important): **{{important}}**\n" +
			"🤖 AI responses: **{{ai}}**\n" +
			"✅ Active chats: **{{chats}}**\n",
		StatsByChat:   "\n📊 Messages by chat:\n",
		StatsChatLine: "  • Chat {{chat_id}}: {{count}}\n",

		NoPins:     "📌 No pinned messages in this chat",
		PinsHeader: "📌 **Pinned messages ({{count}})**:\n\n",
		PinsEntry:  "🔸 ID: `{{id}}` | Msg: {{msg_id}}\n   👤 {{author}} | 📅 {{date}}\n   💬 {{preview}}\n\n",
		PinsFooter: "\n💡 Use `!unpin <ID>` to remove",

		UnpinUsage:  "❌ Usage: `!unpin <message_id>`",
		PinUsage:    "❌ Usage: `!pin <message_id>`",
		IDNotNumber: "❌ ID must be a number",
		Unpinned:    "✅ Message unpinned",
		UnpinFailed: "❌ Message not found or already unpinned",
		Pinned:      "✅ Message pinned",
		PinFailed:   "❌ Message not found or cannot be pinned",

		DebugHeader:     "Last 10 messages:\n\n",
		PreviewChunked:  "✅ Generating prompt preview...",
		PreviewChunk:    "Part {{index}}/{{total}}:\n\n",
		MarkedImportant: "Marked as important ⭐",

		AIKeyMissing:  "❌ Error: AI key is not configured for this bot.",
		Thinking:      "💭 Thinking...",
		ErrorMark:     "❌ ",
		RequestFailed: "Error processing request: {{error}}",
		ThinkingMark:  "🎩",
		StorageFailed: "❌ Storage is unavailable, try again later",

		MediaNeedsReply:     "This command must be used in reply to a message with media",
		MediaUnsupported:    "The replied message has no supported media",
		MediaDefaultPrompt:  "Describe this media file in detail",
		MediaProcessing:     "⏳ Downloading and processing media...",
		MediaDownloadFailed: "❌ Failed to download media",
		MediaEmpty:          "❌ Downloaded file is empty (0 bytes)",
		MediaUploading:      "✅ File downloaded ({{size}} bytes)\n⏳ Sending to AI...",
		MediaFailed:         "Critical error while processing media: {{error}}",
	}
}

// fill replaces {{key}} placeholders, kv is key, value, key, value...
func fill(tmpl string, kv ...string) string {
	if len(kv) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{{"+kv[i]+"}}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
