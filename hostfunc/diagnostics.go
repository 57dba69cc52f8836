package hostfunc

import (
	"context"
	"log/slog"

	"github.com/caffeineduck/asi/interop"
)

// LevelTrace is the slog level of guest records below Debug.
const LevelTrace = slog.LevelDebug - 4

// GuestTargetPrefix tags the target of guest-originated log records.
const GuestTargetPrefix = "GUEST:"

type Diagnostics struct {
	logger *slog.Logger
}

func NewDiagnostics(logger *slog.Logger) *Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diagnostics{logger: logger}
}

func (d *Diagnostics) Hello(ctx context.Context, req interop.HelloRequest) (interop.Unit, error) {
	d.logger.InfoContext(ctx, "sysreq hello", "who", req.Who, "instance", instanceID(ctx))
	return interop.Unit{}, nil
}

func (d *Diagnostics) Poke(ctx context.Context, _ interop.PokeRequest) (uint64, error) {
	s, ok := StateFrom(ctx)
	if !ok {
		return 0, interop.ErrBadRequest
	}
	return s.Poke(), nil
}

// Log writes a guest record to the host log. It never fails.
func (d *Diagnostics) Log(ctx context.Context, req interop.LogRequest) (interop.Unit, error) {
	d.logger.LogAttrs(ctx, SlogLevel(req.Level), req.Body,
		slog.String("target", GuestTargetPrefix+req.Target),
		slog.String("module", req.ModulePath),
		slog.String("file", req.File),
		slog.Uint64("line", uint64(req.Line)),
		slog.String("instance", instanceID(ctx)),
	)
	return interop.Unit{}, nil
}

// SlogLevel maps a guest level to the host log level. Unknown levels are
// logged as trace.
func SlogLevel(l interop.Level) slog.Level {
	switch l {
	case interop.LevelError:
		return slog.LevelError
	case interop.LevelWarn:
		return slog.LevelWarn
	case interop.LevelInfo:
		return slog.LevelInfo
	case interop.LevelDebug:
		return slog.LevelDebug
	}
	return LevelTrace
}
