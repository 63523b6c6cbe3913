package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"tmscraper/pkg/config"
)

// Version is stamped on every log line.
var Version = "dev"

// Logger is the structured logging surface shared by every package.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	WithContext(ctx context.Context) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})
	FatalWithFields(msg string, fields map[string]interface{})

	// GetZerolog exposes the wrapped logger, or nil when there is none
	GetZerolog() *zerolog.Logger
}

// zlog carries its fields in the zerolog context, so derived loggers
// never copy maps.
type zlog struct {
	z zerolog.Logger
}

var levels = map[string]zerolog.Level{
	"":         zerolog.InfoLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"disabled": zerolog.Disabled,
}

func parseLogLevel(s string) (zerolog.Level, error) {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", s)
}

// New builds a Logger writing to stderr.
func New(cfg *config.LoggingConfig) (Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter builds a Logger whose console output goes to w. A configured
// log file always receives JSON lines in addition.
func NewWithWriter(cfg *config.LoggingConfig, w io.Writer) (Logger, error) {
	lvl, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	sinks := []io.Writer{w}
	if !strings.EqualFold(cfg.Format, "json") {
		sinks[0] = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		}
	}
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
	}

	var out io.Writer = sinks[0]
	if len(sinks) > 1 {
		out = zerolog.MultiLevelWriter(sinks...)
	}

	z := zerolog.New(out).With().
		Timestamp().
		Str("app", config.AppName).
		Str("version", Version).
		Logger()
	return &zlog{z: z}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func (l *zlog) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l *zlog) Info(msg string)  { l.z.Info().Msg(msg) }
func (l *zlog) Warn(msg string)  { l.z.Warn().Msg(msg) }
func (l *zlog) Error(msg string) { l.z.Error().Msg(msg) }
func (l *zlog) Fatal(msg string) { l.z.Fatal().Msg(msg) }

func (l *zlog) DebugWithFields(msg string, fields map[string]interface{}) {
	l.z.Debug().Fields(fields).Msg(msg)
}

func (l *zlog) InfoWithFields(msg string, fields map[string]interface{}) {
	l.z.Info().Fields(fields).Msg(msg)
}

func (l *zlog) WarnWithFields(msg string, fields map[string]interface{}) {
	l.z.Warn().Fields(fields).Msg(msg)
}

func (l *zlog) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.z.Error().Fields(fields).Msg(msg)
}

func (l *zlog) FatalWithFields(msg string, fields map[string]interface{}) {
	l.z.Fatal().Fields(fields).Msg(msg)
}

func (l *zlog) WithField(key string, value interface{}) Logger {
	return &zlog{z: l.z.With().Interface(key, value).Logger()}
}

func (l *zlog) WithFields(fields map[string]interface{}) Logger {
	return &zlog{z: l.z.With().Fields(fields).Logger()}
}

// WithError returns l itself for a nil error.
func (l *zlog) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zlog{z: l.z.With().Err(err).Logger()}
}

func (l *zlog) WithContext(ctx context.Context) Logger {
	return &zlog{z: l.z.With().Ctx(ctx).Logger()}
}

func (l *zlog) GetZerolog() *zerolog.Logger { return &l.z }

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// Initialize installs a logger built from cfg as the process-wide default.
func Initialize(cfg *config.LoggingConfig) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	SetLogger(l)
	log.Logger = *l.GetZerolog()
	return nil
}

// SetLogger replaces the process-wide logger; nil restores the lazy default.
func SetLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetLogger returns the process-wide logger, creating an info-level console
// logger on first use.
func GetLogger() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger, _ = New(&config.LoggingConfig{Level: "info", Format: "text"})
	}
	return globalLogger
}

func Debug(msg string) { GetLogger().Debug(msg) }
func Info(msg string)  { GetLogger().Info(msg) }
func Warn(msg string)  { GetLogger().Warn(msg) }
func Error(msg string) { GetLogger().Error(msg) }
func Fatal(msg string) { GetLogger().Fatal(msg) }

func WithField(key string, value interface{}) Logger  { return GetLogger().WithField(key, value) }
func WithFields(fields map[string]interface{}) Logger { return GetLogger().WithFields(fields) }
func WithError(err error) Logger                      { return GetLogger().WithError(err) }
