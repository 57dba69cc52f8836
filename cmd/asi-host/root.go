package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caffeineduck/asi/internal/config"
	"github.com/caffeineduck/asi/internal/logging"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "asi-host",
	Short: "a-Si host daemon",
	Long: `asi-host - Run WebAssembly modules submitted over a control socket.

Every module gets its own sysreq device, reachable through the handle named
by ASI_RPCROOT_FD. Configuration is read from --config or ASI_HOST_CONFIG;
flags override the file. The host stops on a shutdown request, SIGINT or
SIGTERM, after its modules have exited.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runHost,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	addHostFlags(rootCmd.Flags())
}

func addHostFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (default: $ASI_HOST_CONFIG)")
	fs.StringP("socket", "s", "", "Control socket path")
	fs.String("log-level", "", "Log level: trace, debug, info, warn, error")
	fs.String("log-format", "", "Log format: text, json")
	fs.Bool("journal", false, "Log to the systemd journal")
	fs.Bool("no-signals", false, "Do not turn SIGINT/SIGTERM into a shutdown request")
	fs.Uint32("memory-pages", 0, "Per-module memory limit in 64KiB pages (0: no limit)")
	fs.String("cache-dir", "", "Compilation cache directory")
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := fs.GetString("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyFlags(fs, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "socket":
			cfg.SocketPath = f.Value.String()
		case "log-level":
			cfg.Log.Level = f.Value.String()
		case "log-format":
			cfg.Log.Format = f.Value.String()
		case "journal":
			cfg.Log.Journal, _ = fs.GetBool("journal")
		case "no-signals":
			noSignals, _ := fs.GetBool("no-signals")
			cfg.HandleSignals = !noSignals
		case "memory-pages":
			cfg.Runtime.MemoryLimitPages, _ = fs.GetUint32("memory-pages")
		case "cache-dir":
			cfg.Runtime.CacheDir = f.Value.String()
		}
	})
}

func runHost(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.Init(cmd.ErrOrStderr(), logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Journal: cfg.Log.Journal,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	h, err := startHost(cfg, logger, cmd.OutOrStdout())
	if err != nil {
		logger.Error("failed to start host", "error", err)
		return err
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify failed", "error", err)
	}
	logger.Info("host ready", "socket", cfg.SocketPath)

	h.serve(cmd.Context())

	daemon.SdNotify(false, daemon.SdNotifyStopping)
	return h.close()
}
