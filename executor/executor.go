package executor

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/caffeineduck/asi/guest"
	"github.com/caffeineduck/asi/hostfunc"
	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"golang.org/x/sync/errgroup"
)

var (
	ErrClosed  = errors.New("executor closed")
	ErrNoEntry = errors.New("module has no _start export")
)

// Executor compiles and runs sandboxed modules. Every module gets its own
// sysreq root device.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[[sha256.Size]byte]wazero.CompiledModule
	registry *hostfunc.Registry
	logger   *slog.Logger
	kvConfig hostfunc.KVConfig
	stdout   io.Writer
	stderr   io.Writer

	// ctx outlives Spawn calls; cancelling it stops running modules.
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu     sync.RWMutex
	closed bool
}

func New(opts ...Option) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.registry
	if registry == nil {
		registry = hostfunc.Defaults(logger, cfg.resolver)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		closeAll(ctx, rt, cache)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	if err := instantiateHostModule(ctx, rt); err != nil {
		closeAll(ctx, rt, cache)
		return nil, fmt.Errorf("instantiate %s host module: %w", HostModuleName, err)
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[[sha256.Size]byte]wazero.CompiledModule),
		registry: registry,
		logger:   logger,
		kvConfig: cfg.kvConfig,
		stdout:   cfg.stdout,
		stderr:   cfg.stderr,
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	return e, nil
}

// Instance is a module started by Spawn.
type Instance struct {
	id     string
	device *Device
	done   chan struct{}
	err    error
}

// ID is the instance's unique name.
func (i *Instance) ID() string { return i.id }

// Device returns the instance's root device.
func (i *Instance) Device() *Device { return i.device }

// Wait blocks until the module exits and returns its failure, if any. A
// zero exit code is not a failure.
func (i *Instance) Wait() error {
	<-i.done
	return i.err
}

// Spawn compiles binary, links it and starts its _start function in the
// background. Compile and link failures are returned; failures of the running
// module are logged and reported by Instance.Wait and Executor.Wait.
func (e *Executor) Spawn(ctx context.Context, binary []byte) (*Instance, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	compiled, err := e.getCompiled(ctx, binary)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	inst := &Instance{
		id:     id,
		device: NewDevice(e.registry, hostfunc.NewState(id, e.kvConfig)),
		done:   make(chan struct{}),
	}
	handles := NewHandles()
	root := handles.Add(inst.device)

	moduleConfig := wazero.NewModuleConfig().
		WithName(id).
		WithArgs("asi-" + id).
		WithEnv(guest.EnvRootFD, strconv.Itoa(int(root))).
		WithStdout(e.stdout).
		WithStderr(e.stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader).
		WithStartFunctions()

	instCtx := withHandles(e.ctx, handles)
	mod, err := e.runtime.InstantiateModule(instCtx, compiled, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate module: %w", err)
	}

	start := mod.ExportedFunction("_start")
	if start == nil {
		mod.Close(instCtx)
		return nil, ErrNoEntry
	}

	e.logger.Info("module started", "instance", id)
	e.group.Go(func() error {
		defer close(inst.done)
		inst.err = e.run(instCtx, mod, start)
		if inst.err != nil {
			e.logger.Warn("program crashed", "instance", id, "error", inst.err)
			return fmt.Errorf("instance %s: %w", id, inst.err)
		}
		e.logger.Info("module exited", "instance", id)
		return nil
	})

	return inst, nil
}

func (e *Executor) run(ctx context.Context, mod api.Module, start api.Function) error {
	defer mod.Close(context.Background())

	_, err := start.Call(ctx)
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		return nil
	}
	return err
}

// Wait blocks until every spawned module has exited and returns the first
// failure.
func (e *Executor) Wait() error {
	return e.group.Wait()
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, binary []byte) (wazero.CompiledModule, error) {
	key := sha256.Sum256(binary)

	e.mu.RLock()
	if compiled, ok := e.compiled[key]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if compiled, ok := e.compiled[key]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	e.compiled[key] = compiled
	return compiled, nil
}

// Close stops running modules and releases all resources held by the
// Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.cancel()

	return closeAll(context.Background(), e.runtime, e.cache)
}

func closeAll(ctx context.Context, rt wazero.Runtime, cache wazero.CompilationCache) error {
	var errs []error
	if err := rt.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if cache != nil {
		if err := cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "asi")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "asi")
	}
	return filepath.Join(os.TempDir(), "asi-cache")
}
