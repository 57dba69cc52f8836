// Package logging sets up the host's slog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caffeineduck/asi/hostfunc"
	"import.name/sjournal"
)

type Options struct {
	Level   string
	Format  string // text or json
	Journal bool
}

// ParseLevel accepts trace, debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return hostfunc.LevelTrace, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// Init builds the logger described by opts, writing to w unless the journal
// is selected, and makes it the default. On error the previous default is
// returned alongside it.
func Init(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return slog.Default(), err
	}

	var h slog.Handler
	switch {
	case opts.Journal:
		jh, err := sjournal.NewHandler(&sjournal.HandlerOptions{
			Delimiter:  sjournal.ColonDelimiter,
			TimeFormat: time.RFC3339Nano,
		})
		if err != nil {
			return slog.Default(), err
		}
		h = leveled{jh, level}
	case opts.Format == "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel})
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel})
	}

	log := slog.New(h)
	slog.SetDefault(log)
	return log, nil
}

// replaceLevel prints hostfunc.LevelTrace as TRACE instead of DEBUG-4.
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		if level, ok := a.Value.Any().(slog.Level); ok && level == hostfunc.LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

type leveled struct {
	slog.Handler
	level slog.Level
}

func (h leveled) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.Handler.Enabled(ctx, level)
}

func (h leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return leveled{h.Handler.WithAttrs(attrs), h.level}
}

func (h leveled) WithGroup(name string) slog.Handler {
	return leveled{h.Handler.WithGroup(name), h.level}
}
