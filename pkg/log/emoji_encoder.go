package log

import (
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// typeEmoji maps the "type" field of a log line to the emoji prefixed to its message.
var typeEmoji = map[string]string{
	"startup":      "🚀",
	"success":      "✅",
	"governor":     "🛡️",
	"breaker":      "🔌",
	"rate_limit":   "🚦",
	"janitor":      "🧹",
	"feed":         "📰",
	"fetch":        "🌐",
	"request":      "🌐",
	"database":     "💾",
	"redis":        "📦",
	"scheduler":    "🎯",
	"audit":        "📋",
	"slow_request": "🐌",
	"cache_stats":  "📊",
}

// stateEmoji maps a breaker "state" field to a traffic light.
var stateEmoji = map[string]string{
	"closed":    "🟢",
	"half_open": "🟡",
	"open":      "🔴",
}

var levelEmoji = map[zapcore.Level]string{
	zapcore.DebugLevel:  "🐛",
	zapcore.InfoLevel:   "ℹ️",
	zapcore.WarnLevel:   "⚠️",
	zapcore.ErrorLevel:  "❌",
	zapcore.DPanicLevel: "❌",
	zapcore.PanicLevel:  "❌",
	zapcore.FatalLevel:  "❌",
}

// statusEmoji picks a traffic-light emoji for an HTTP status code.
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

// pickEmoji prefers the HTTP status, then the breaker state, then the log type,
// and falls back to the level.
func pickEmoji(level zapcore.Level, fields []zapcore.Field) string {
	var logType, state string
	var status int64
	for _, f := range fields {
		switch {
		case f.Key == "status" && (f.Type == zapcore.Int64Type || f.Type == zapcore.Int32Type):
			status = f.Integer
		case f.Key == "state" && f.Type == zapcore.StringType:
			state = f.String
		case f.Key == "type" && f.Type == zapcore.StringType:
			logType = f.String
		}
	}

	if status > 0 {
		return statusEmoji(int(status))
	}
	if e, ok := stateEmoji[state]; ok {
		return e
	}
	if e, ok := typeEmoji[logType]; ok {
		return e
	}
	return levelEmoji[level]
}

// EmojiConsoleEncoder is the development console encoder. It prefixes each
// message with an emoji so breaker and throttling lines stand out.
type EmojiConsoleEncoder struct {
	zapcore.Encoder
}

// NewEmojiConsoleEncoder wraps zap's console encoder.
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

// EncodeEntry implements zapcore.Encoder.
func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if emoji := pickEmoji(entry.Level, fields); emoji != "" {
		entry.Message = emoji + " " + entry.Message
	}
	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone implements zapcore.Encoder.
func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: enc.Encoder.Clone()}
}
