// Package logging provides the gateway's leveled logging abstraction.
// The interface is deliberately minimal, in the style of franz-go's
// own kgo.Logger: a single Log call keyed on a level plus free-form
// key/value pairs, so that callers never need to format strings
// themselves and any backend (zerolog, zap, stdlib log, a test spy)
// can be plugged in.
package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Level mirrors kgo.LogLevel.
type Level int8

const (
	LevelNone Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "NONE"
	}
}

// Logger is implemented by anything that can sink leveled, structured
// log lines. endpoint/keyvals are always an even-length list of
// alternating keys and values.
type Logger interface {
	Log(level Level, msg string, keyvals ...interface{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) Log(Level, string, ...interface{}) {}

// Zerolog adapts a zerolog.Logger to the Logger interface; it is the
// default used by cmd/flowgated.
type Zerolog struct {
	L zerolog.Logger
}

// NewZerolog builds a Zerolog logger writing to stderr.
func NewZerolog() Zerolog {
	return Zerolog{L: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()}
}

func (z Zerolog) Log(level Level, msg string, keyvals ...interface{}) {
	var ev *zerolog.Event
	switch level {
	case LevelError:
		ev = z.L.Error()
	case LevelWarn:
		ev = z.L.Warn()
	case LevelInfo:
		ev = z.L.Info()
	case LevelDebug:
		ev = z.L.Debug()
	default:
		return
	}
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}
