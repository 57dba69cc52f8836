package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/asi/control"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive control shell",
	Long: `Start an interactive shell connected to the host.

Commands:
  version        Print the host version
  run <file>     Start a module
  shutdown       Stop the host and leave the console
  help           List commands

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().String("history", "", "History file path (default: ~/.asi_history)")
	rootCmd.AddCommand(consoleCmd)
}

const consoleHelp = `version        Print the host version
run <file>     Start a module
shutdown       Stop the host and leave the console
exit, quit     Leave the console
`

var errQuit = errors.New("quit")

type console struct {
	client *control.Client
	out    io.Writer
}

// exec runs one console line. It returns errQuit when the console should
// end.
func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "exit", "quit":
		return errQuit
	case "help":
		fmt.Fprint(c.out, consoleHelp)
		return nil
	case "version":
		version, err := c.client.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, version)
		return nil
	case "run":
		if len(fields) != 2 {
			return errors.New("usage: run <file>")
		}
		binary, err := os.ReadFile(fields[1])
		if err != nil {
			return err
		}
		if err := c.client.Run(ctx, binary); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "started %s\n", fields[1])
		return nil
	case "shutdown":
		if err := c.client.Shutdown(ctx); err != nil {
			return err
		}
		return errQuit
	}
	return fmt.Errorf("unknown command %q (try help)", fields[0])
}

func runConsole(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".asi_history")
	}

	path := socketPath(cmd.Flags())
	c := &console{client: newClient(cmd), out: cmd.OutOrStdout()}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "asi> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("version"),
			readline.PcItem("run"),
			readline.PcItem("shutdown"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "asi console on %s (type 'help' for commands, Ctrl+D to exit)\n", path)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		ctx, cancel := requestContext(cmd)
		err = c.exec(ctx, line)
		cancel()
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}
