package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/caffeineduck/asi/control"
	"github.com/caffeineduck/asi/executor"
	"github.com/caffeineduck/asi/internal/config"
)

const hostVersion = "1.0"

var errStartFailed = errors.New("failed to start process")

type host struct {
	exec   *executor.Executor
	srv    *control.Server
	logger *slog.Logger
}

func startHost(cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*host, error) {
	opts := []executor.Option{
		executor.WithLogger(logger),
		executor.WithKVConfig(cfg.KV.Store()),
		executor.WithStdout(stdout),
	}
	if cfg.Runtime.CacheDir != "" {
		opts = append(opts, executor.WithDiskCache(cfg.Runtime.CacheDir))
	}
	if cfg.Runtime.MemoryLimitPages > 0 {
		opts = append(opts, executor.WithMemoryLimit(cfg.Runtime.MemoryLimitPages))
	}

	exec, err := executor.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("start runtime: %w", err)
	}

	srv, err := control.Start(cfg.SocketPath,
		control.WithSignals(cfg.HandleSignals),
		control.WithMaxPayload(cfg.MaxPayload),
		control.WithLogger(logger),
	)
	if err != nil {
		exec.Close()
		return nil, fmt.Errorf("start control server: %w", err)
	}

	return &host{exec: exec, srv: srv, logger: logger}, nil
}

// serve answers control requests until a shutdown request arrives or the
// server goes away.
func (h *host) serve(ctx context.Context) {
	for {
		req, err := h.srv.Wait(ctx)
		if err != nil {
			h.logger.Error("unexpected control server shutdown", "error", err)
			return
		}

		switch req.Request.Op {
		case control.OpVersion:
			req.Respond([]byte(hostVersion), nil)
		case control.OpShutdown:
			req.Respond(nil, nil)
			h.logger.Info("shutdown request, stopping host")
			return
		case control.OpRun:
			h.logger.Info("starting remote module", "size", len(req.Request.Binary))
			if _, err := h.exec.Spawn(ctx, req.Request.Binary); err != nil {
				h.logger.Warn("failed to start process", "error", err)
				req.Respond(nil, errStartFailed)
				continue
			}
			req.Respond(nil, nil)
		}
	}
}

// close stops the control server and waits for every module to exit.
func (h *host) close() error {
	h.srv.Shutdown()

	if err := h.exec.Wait(); err != nil {
		h.logger.Warn("module failed", "error", err)
	}
	h.logger.Info("all processes have terminated, host shut down")

	return h.exec.Close()
}
