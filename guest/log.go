package guest

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/caffeineduck/asi/interop"
)

// DefaultTarget is the log target of records from an ungrouped handler.
const DefaultTarget = "guest"

// LogHandler is a slog.Handler that forwards records to the host log through
// Log requests. Groups become the record target, joined with "::".
type LogHandler struct {
	client *Client
	level  slog.Leveler
	groups []string
	attrs  string
}

// NewLogHandler returns a handler writing through c. A nil opts logs at
// Info and above.
func NewLogHandler(c *Client, opts *slog.HandlerOptions) *LogHandler {
	h := &LogHandler{client: c, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var body strings.Builder
	body.WriteString(r.Message)
	body.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&body, a, "")
		return true
	})

	req := interop.LogRequest{
		Target: h.target(),
		Level:  levelOf(r.Level),
		Body:   body.String(),
	}
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		req.ModulePath = packagePath(frame.Function)
		req.File = frame.File
		req.Line = uint32(frame.Line)
	}

	return h.client.Log(req)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, a, "")
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return &h2
}

func (h *LogHandler) target() string {
	if len(h.groups) == 0 {
		return DefaultTarget
	}
	return strings.Join(h.groups, "::")
}

func appendAttr(b *strings.Builder, a slog.Attr, prefix string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, ga, prefix)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}

func levelOf(l slog.Level) interop.Level {
	switch {
	case l >= slog.LevelError:
		return interop.LevelError
	case l >= slog.LevelWarn:
		return interop.LevelWarn
	case l >= slog.LevelInfo:
		return interop.LevelInfo
	case l >= slog.LevelDebug:
		return interop.LevelDebug
	}
	return interop.LevelTrace
}

// packagePath trims the function name off a fully qualified symbol, e.g.
// "example.com/app/pkg.(*T).M" becomes "example.com/app/pkg".
func packagePath(function string) string {
	slash := strings.LastIndexByte(function, '/')
	if dot := strings.IndexByte(function[slash+1:], '.'); dot >= 0 {
		return function[:slash+1+dot]
	}
	return function
}
