package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ScoutBot/internal/conf"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ServiceName is attached to every log line as the "service" field.
const ServiceName = "ScoutBot"

const (
	envDevelopment = "development"
	envProduction  = "production"
)

// Rotation limits for the optional log file.
const (
	fileMaxSizeMB  = 50
	fileMaxAgeDays = 14
	fileMaxBackups = 10
)

func localTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format("[2006-01-02 15:04:05]"))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     localTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// resolveEnv falls back to SCOUTBOT_ENV, then production.
func resolveEnv(configured string) string {
	if configured != "" {
		return configured
	}
	if env := os.Getenv("SCOUTBOT_ENV"); env != "" {
		return env
	}
	return envProduction
}

// NewZapLogger builds the process logger from cfg.
//
// Lines below ERROR go to stdout and ERROR and above to stderr. When OutputFile is
// set every line at the configured level is also written as JSON to a rotated file.
// The console uses the emoji encoder for the console format or a development env.
func NewZapLogger(cfg *conf.Log) (*zap.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config is nil")
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encCfg := encoderConfig()
	console := zapcore.NewJSONEncoder(encCfg)
	if strings.EqualFold(cfg.Format, "console") || resolveEnv(cfg.Env) == envDevelopment {
		console = NewEmojiConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= level && l < zapcore.ErrorLevel
		})),
		zapcore.NewCore(console, zapcore.Lock(os.Stderr), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.ErrorLevel
		})),
	}
	if cfg.OutputFile != "" {
		cores = append(cores, fileCore(cfg.OutputFile, encCfg, level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", ServiceName)),
	), nil
}

func fileCore(path string, encCfg zapcore.EncoderConfig, level zapcore.Level) zapcore.Core {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxAge:     fileMaxAgeDays,
		MaxBackups: fileMaxBackups,
		Compress:   true,
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level)
}
