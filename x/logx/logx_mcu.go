//go:build rp2040 || rp2350

package logx

import (
	"io"

	"servocode-go/x/conv"
)

var (
	minLevel = LevelInfo
	// Output mirrors every line (e.g. a UART console). The USB console
	// always receives it through print.
	Output io.Writer
)

func SetLevel(l Level) { minLevel = l }

// SetOutput installs the mirror writer; nil disables it.
func SetOutput(w io.Writer) { Output = w }

func Sync() {}

type stringer interface{ String() string }

func emit(l Level, msg string, kv []any) {
	if l < minLevel {
		return
	}
	var line []byte
	line = append(line, l.letter(), ' ')
	line = append(line, msg...)
	for i := 0; i+1 < len(kv); i += 2 {
		line = append(line, ' ')
		if k, ok := kv[i].(string); ok {
			line = append(line, k...)
		}
		line = append(line, '=')
		line = appendValue(line, kv[i+1])
	}
	line = append(line, '\n')
	print(string(line))
	if Output != nil {
		_, _ = Output.Write(line)
	}
}

func appendValue(b []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return append(b, x...)
	case bool:
		if x {
			return append(b, "true"...)
		}
		return append(b, "false"...)
	case int:
		return conv.AppendInt(b, int64(x))
	case int64:
		return conv.AppendInt(b, x)
	case uint8:
		return conv.AppendUint(b, uint64(x))
	case uint16:
		return conv.AppendUint(b, uint64(x))
	case uint32:
		return conv.AppendUint(b, uint64(x))
	case uint64:
		return conv.AppendUint(b, x)
	case error:
		return append(b, x.Error()...)
	case stringer:
		return append(b, x.String()...)
	case nil:
		return append(b, "nil"...)
	default:
		return append(b, '?')
	}
}
