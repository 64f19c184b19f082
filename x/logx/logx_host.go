//go:build !(rp2040 || rp2350)

package logx

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
	global = New(level)
)

// New creates a console *zap.SugaredLogger writing to stdout.
func New(enab zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "ts",
		CallerKey:        "caller",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	})
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), enab), options...).Sugar()
}

// Logger returns the global logger.
func Logger() *zap.SugaredLogger { return global }

// SetLogger replaces the global logger. Not safe for concurrent use with
// logging calls; call it during start-up or from tests.
func SetLogger(l *zap.SugaredLogger) { global = l }

// SetLevel sets the minimum level of loggers built with LevelEnabler.
func SetLevel(l Level) { level.SetLevel(toZap(l)) }

// LevelEnabler is the shared level switch that SetLevel drives.
func LevelEnabler() zapcore.LevelEnabler { return level }

// Sync flushes buffered entries.
func Sync() { _ = global.Sync() }

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func emit(l Level, msg string, kv []any) {
	switch l {
	case LevelDebug:
		global.Debugw(msg, kv...)
	case LevelWarn:
		global.Warnw(msg, kv...)
	case LevelError:
		global.Errorw(msg, kv...)
	default:
		global.Infow(msg, kv...)
	}
}
