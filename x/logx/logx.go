// Package logx is the project logger. Host builds log through zap; MCU
// builds print compact "L msg k=v" lines without fmt.
package logx

import "strings"

type Level int8

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a config string to a Level.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

func (l Level) letter() byte {
	switch l {
	case LevelDebug:
		return 'D'
	case LevelWarn:
		return 'W'
	case LevelError:
		return 'E'
	default:
		return 'I'
	}
}

// Debug writes msg with key/value pairs at debug level.
func Debug(msg string, kv ...any) { emit(LevelDebug, msg, kv) }

func Info(msg string, kv ...any)  { emit(LevelInfo, msg, kv) }
func Warn(msg string, kv ...any)  { emit(LevelWarn, msg, kv) }
func Error(msg string, kv ...any) { emit(LevelError, msg, kv) }
