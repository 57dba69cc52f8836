package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the host version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		version, err := newClient(cmd).Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <file.wasm>",
	Short: "Start a module on the host",
	Long: `Send a WebAssembly module to the host and start it.

The module must be a WASI command exporting _start. Use - to read the
module from stdin. The command returns once the host has started the module;
its output appears on the host.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		binary, err := readModule(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		return newClient(cmd).Run(ctx, binary)
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop the host",
	Long: `Ask the host to stop accepting requests. The host exits once every
running module has finished.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		return newClient(cmd).Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, runCmd, shutdownCmd)
}

func readModule(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}
