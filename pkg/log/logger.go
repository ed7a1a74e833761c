package log

import (
	"fmt"
	"io"
	"os"

	ipfslog "github.com/ipfs/go-log/v2"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger defines the structured logging interface used by every component.
type Logger interface {
	// Info takes a message and a set of key/value pairs and logs with level INFO.
	// The key of the tuple must be a string.
	Info(msg string, keyVals ...any)

	// Warn takes a message and a set of key/value pairs and logs with level WARN.
	// The key of the tuple must be a string.
	Warn(msg string, keyVals ...any)

	// Error takes a message and a set of key/value pairs and logs with level ERR.
	// The key of the tuple must be a string.
	Error(msg string, keyVals ...any)

	// Debug takes a message and a set of key/value pairs and logs with level DEBUG.
	// The key of the tuple must be a string.
	Debug(msg string, keyVals ...any)

	// With returns a new wrapped logger with additional context provided by a set.
	With(keyVals ...any) Logger

	// Impl returns the underlying logger implementation.
	// Advanced users can type cast the returned value to *ipfslog.ZapEventLogger.
	Impl() any
}

// zapLogger wraps ipfs/go-log ZapEventLogger to implement our Logger interface
type zapLogger struct {
	logger *ipfslog.ZapEventLogger
}

var _ Logger = (*zapLogger)(nil)

// NewLogger creates a new logger that writes to the given destination.
// A nil destination writes to stderr.
func NewLogger(dst io.Writer, options ...Option) Logger {
	config := &Config{
		Level: zapcore.InfoLevel,
	}
	for _, opt := range options {
		opt(config)
	}
	if dst == nil {
		dst = os.Stderr
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if config.EnableJSON {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var zapOpts []zap.Option
	if config.Trace {
		zapOpts = append(zapOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(dst), config.Level)
	return wrap(zap.New(core, zapOpts...).Sugar())
}

// NewNopLogger creates a no-op logger.
func NewNopLogger() Logger {
	return wrap(zap.NewNop().Sugar())
}

// NewTestLogger creates a logger that writes through t.Log at debug level.
func NewTestLogger(t zaptest.TestingT) Logger {
	return wrap(zaptest.NewLogger(t, zaptest.Level(zapcore.DebugLevel)).Sugar())
}

func wrap(s *zap.SugaredLogger) *zapLogger {
	return &zapLogger{
		logger: &ipfslog.ZapEventLogger{SugaredLogger: *s},
	}
}

// Info logs at info level with key-value pairs
func (z *zapLogger) Info(msg string, keyVals ...any) {
	z.logger.Infow(msg, keyVals...)
}

// Warn logs at warn level with key-value pairs
func (z *zapLogger) Warn(msg string, keyVals ...any) {
	z.logger.Warnw(msg, keyVals...)
}

// Error logs at error level with key-value pairs
func (z *zapLogger) Error(msg string, keyVals ...any) {
	z.logger.Errorw(msg, keyVals...)
}

// Debug logs at debug level with key-value pairs
func (z *zapLogger) Debug(msg string, keyVals ...any) {
	z.logger.Debugw(msg, keyVals...)
}

// With returns a new logger with additional context
func (z *zapLogger) With(keyVals ...any) Logger {
	return wrap(z.logger.With(keyVals...))
}

// Impl returns the underlying logger implementation
func (z *zapLogger) Impl() any {
	return z.logger
}

// Option defines configuration options for the logger
type Option func(*Config)

// Config holds logger configuration
type Config struct {
	Level      zapcore.Level
	EnableJSON bool
	Trace      bool
}

// OutputJSONOption enables JSON output format
func OutputJSONOption() Option {
	return func(c *Config) {
		c.EnableJSON = true
	}
}

// LevelOption sets the log level
func LevelOption(level zerolog.Level) Option {
	return func(c *Config) {
		c.Level = toZapLevel(level)
	}
}

// TraceOption enables or disables stack traces on error logs
func TraceOption(enabled bool) Option {
	return func(c *Config) {
		c.Trace = enabled
	}
}

// ParseLevel parses a textual log level (debug, info, warn, error).
func ParseLevel(level string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

func toZapLevel(level zerolog.Level) zapcore.Level {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return zapcore.DebugLevel
	case zerolog.WarnLevel:
		return zapcore.WarnLevel
	case zerolog.ErrorLevel:
		return zapcore.ErrorLevel
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
