// Package logger wraps zerolog with request-scoped fields carried on the
// context. Handlers enrich the context once and every layer below logs
// through it.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// Format is FormatJSON (default) or FormatConsole.
	Format string
	// WarnStack attaches a stack trace to warnings; meant for development.
	WarnStack bool
	Output    io.Writer
}

type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	root := zerolog.New(writer(opts)).
		Level(level).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{root: root, warnStack: opts.WarnStack}
}

func writer(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return out
}

func Nop() *Logger {
	return &Logger{root: zerolog.Nop()}
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// scoped returns the logger stored on ctx by one of the With helpers, or the
// root logger when there is none.
func (l *Logger) scoped(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if zl := zerolog.Ctx(ctx); zl.GetLevel() != zerolog.Disabled {
			return zl
		}
	}
	return &l.root
}

func (l *Logger) extend(ctx context.Context, with func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	zl := with(l.scoped(ctx).With()).Logger()
	return zl.WithContext(ctx)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.extend(ctx, func(zc zerolog.Context) zerolog.Context {
		return zc.Interface(key, value)
	})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.extend(ctx, func(zc zerolog.Context) zerolog.Context {
		return zc.Fields(fields)
	})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.extend(ctx, func(zc zerolog.Context) zerolog.Context {
		return zc.Str("request_id", requestID)
	})
}

// WithActor tags every later entry with who is acting: an admin user id or
// a tenant's contract id.
func (l *Logger) WithActor(ctx context.Context, role, id string) context.Context {
	return l.extend(ctx, func(zc zerolog.Context) zerolog.Context {
		return zc.Str("actor_role", role).Str("actor_id", id)
	})
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.scoped(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.scoped(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.scoped(ctx).Warn()
	if l.warnStack {
		event.Str("stack", strings.TrimSpace(string(debug.Stack())))
	}
	event.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.scoped(ctx).Error().Err(err).Msg(msg)
}
