package log

import (
	"sync"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var (
	emojiMu sync.RWMutex
	// emojiMap maps the "type" field of a log entry to its prefix.
	emojiMap = map[string]string{
		"api":          "🔗",
		"auth":         "🔓",
		"security":     "🔒",
		"request":      "🌐",
		"slow_request": "🐌",
		"appointment":  "📅",
		"insurance":    "🩺",
		"circuit":      "🔌",
		"database":     "💾",
		"redis":        "📦",
		"scheduler":    "🎯",
		"startup":      "🚀",
		"audit":        "📋",
	}
)

// statusEmoji colours request lines by HTTP status class.
func statusEmoji(status int) string {
	switch {
	case status >= 500:
		return "🔴"
	case status >= 400:
		return "🟠"
	case status >= 300:
		return "🟡"
	default:
		return "🟢"
	}
}

func levelEmoji(level zapcore.Level) string {
	switch {
	case level >= zapcore.ErrorLevel:
		return "❌"
	case level == zapcore.WarnLevel:
		return "⚠️"
	case level == zapcore.InfoLevel:
		return "ℹ️"
	default:
		return "🐛"
	}
}

// EmojiConsoleEncoder wraps the Zap console encoder and prefixes each
// message with an emoji picked from the status field, the type field or the
// level, in that order.
type EmojiConsoleEncoder struct {
	zapcore.Encoder
}

// NewEmojiConsoleEncoder creates the development console encoder.
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

// EncodeEntry implements zapcore.Encoder.
func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	var (
		logType string
		status  int64
	)
	for _, field := range fields {
		switch {
		case field.Key == "type" && field.Type == zapcore.StringType:
			logType = field.String
		case field.Key == "status" && (field.Type == zapcore.Int64Type || field.Type == zapcore.Int32Type):
			status = field.Integer
		}
	}

	emoji := ""
	if status > 0 {
		emoji = statusEmoji(int(status))
	} else if logType != "" {
		emojiMu.RLock()
		emoji = emojiMap[logType]
		emojiMu.RUnlock()
	}
	if emoji == "" {
		emoji = levelEmoji(entry.Level)
	}

	entry.Message = emoji + " " + entry.Message
	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone implements zapcore.Encoder.
func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: enc.Encoder.Clone()}
}

// RegisterEmoji adds or replaces the emoji of a log type.
func RegisterEmoji(logType, emoji string) {
	emojiMu.Lock()
	defer emojiMu.Unlock()
	emojiMap[logType] = emoji
}

// EmojiFor returns the emoji registered for logType.
func EmojiFor(logType string) (string, bool) {
	emojiMu.RLock()
	defer emojiMu.RUnlock()
	e, ok := emojiMap[logType]
	return e, ok
}
