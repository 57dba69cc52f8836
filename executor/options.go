package executor

import (
	"io"
	"log/slog"

	"github.com/caffeineduck/asi/hostfunc"
)

// Option configures the Executor at creation time.
type Option func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = default (4GB)
	logger           *slog.Logger
	registry         *hostfunc.Registry
	resolver         hostfunc.Resolver
	kvConfig         hostfunc.KVConfig
	stdout           io.Writer
	stderr           io.Writer
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		kvConfig: hostfunc.DefaultKVConfig(),
	}
}

// WithDiskCache enables the persistent compilation cache. Optionally provide
// a custom directory; otherwise uses ~/.cache/asi or XDG_CACHE_HOME/asi.
//
// Examples:
//
//	executor.New(executor.WithDiskCache())            // default dir
//	executor.New(executor.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) Option {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit sets the maximum memory available to each module.
// Each page is 64KB. Examples:
//   - WithMemoryLimit(16) = 1MB max
//   - WithMemoryLimit(256) = 16MB max
//   - WithMemoryLimit(1024) = 64MB max
//
// Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) Option {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)

func WithLogger(logger *slog.Logger) Option {
	return func(c *executorConfig) {
		c.logger = logger
	}
}

// WithRegistry replaces the default handlers. WithResolver has no effect
// when a registry is given.
func WithRegistry(registry *hostfunc.Registry) Option {
	return func(c *executorConfig) {
		c.registry = registry
	}
}

// WithResolver sets the resolver used by lookup requests.
func WithResolver(resolver hostfunc.Resolver) Option {
	return func(c *executorConfig) {
		c.resolver = resolver
	}
}

// WithKVConfig sets the limits of each instance's key-value store.
func WithKVConfig(config hostfunc.KVConfig) Option {
	return func(c *executorConfig) {
		c.kvConfig = config
	}
}

// WithStdout sets where module stdout goes. Default is os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(c *executorConfig) {
		c.stdout = w
	}
}

// WithStderr sets where module stderr goes. Default is os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(c *executorConfig) {
		c.stderr = w
	}
}
