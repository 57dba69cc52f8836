package main

import (
	"context"
	"os"
	"time"

	"github.com/caffeineduck/asi/control"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvSocket names the environment variable holding the control socket path.
const EnvSocket = "ASI_SOCKET"

const defaultSocket = "asi.sock"

var rootCmd = &cobra.Command{
	Use:   "asi",
	Short: "Control an a-Si host",
	Long: `asi - Talk to a running asi-host over its control socket.

Ask the host for its version, submit WebAssembly modules to run, or stop it.
The socket is taken from --socket, then ASI_SOCKET, then ./asi.sock.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	addClientFlags(rootCmd.PersistentFlags())
}

func addClientFlags(fs *pflag.FlagSet) {
	fs.StringP("socket", "s", "", "Control socket path (default: $ASI_SOCKET or asi.sock)")
	fs.Duration("timeout", 30*time.Second, "Request timeout (0: none)")
}

func socketPath(fs *pflag.FlagSet) string {
	if path, _ := fs.GetString("socket"); path != "" {
		return path
	}
	if path := os.Getenv(EnvSocket); path != "" {
		return path
	}
	return defaultSocket
}

func newClient(cmd *cobra.Command) *control.Client {
	return control.NewClient(socketPath(cmd.Flags()))
}

// requestContext bounds one request by --timeout.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
