package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/asi/control"
	"github.com/caffeineduck/asi/internal/testutil"
	"github.com/spf13/cobra"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// fakeHost answers control requests the way asi-host does and records them.
func fakeHost(t *testing.T) (string, <-chan control.Request) {
	t.Helper()
	srv, err := control.Start(testutil.SocketPath(t), control.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("control.Start: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	seen := make(chan control.Request, 16)
	go func() {
		for {
			f, err := srv.Wait(context.Background())
			if err != nil {
				return
			}
			seen <- f.Request
			switch {
			case f.Request.Op == control.OpVersion:
				f.Respond([]byte("1.0"), nil)
			case f.Request.Op == control.OpRun && string(f.Request.Binary) == "bad":
				f.Respond(nil, errors.New("failed to start process"))
			default:
				f.Respond(nil, nil)
			}
		}
	}()
	return srv.Path(), seen
}

func writeModule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mod.wasm")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"asi",
		"version",
		"run",
		"shutdown",
		"console",
		"--socket",
		"ASI_SOCKET",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("help output should contain %q", phrase)
		}
	}
}

func TestCLIConsoleHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "console", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, phrase := range []string{"--history", "Command history", "run <file>"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("console help output should contain %q", phrase)
		}
	}
}

func TestCLIVersion(t *testing.T) {
	path, seen := fakeHost(t)

	output, err := executeCommand(rootCmd, "--socket", path, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(output) != "1.0" {
		t.Errorf("output = %q, want 1.0", output)
	}
	if req := testutil.RequireReceive(t, seen, 5*time.Second, "version request"); req.Op != control.OpVersion {
		t.Errorf("op = %s", req.Op)
	}
}

func TestCLIRun(t *testing.T) {
	path, seen := fakeHost(t)
	module := writeModule(t, "\x00asm module")

	if _, err := executeCommand(rootCmd, "--socket", path, "run", module); err != nil {
		t.Fatalf("run: %v", err)
	}
	req := testutil.RequireReceive(t, seen, 5*time.Second, "run request")
	if req.Op != control.OpRun || string(req.Binary) != "\x00asm module" {
		t.Errorf("request = %+v", req)
	}
}

func TestCLIRunFromStdin(t *testing.T) {
	path, seen := fakeHost(t)
	rootCmd.SetIn(strings.NewReader("piped"))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	if _, err := executeCommand(rootCmd, "--socket", path, "run", "-"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if req := testutil.RequireReceive(t, seen, 5*time.Second, "run request"); string(req.Binary) != "piped" {
		t.Errorf("binary = %q", req.Binary)
	}
}

func TestCLIRunFailure(t *testing.T) {
	path, _ := fakeHost(t)
	module := writeModule(t, "bad")

	output, err := executeCommand(rootCmd, "--socket", path, "run", module)
	var serr *control.ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *control.ServerError", err)
	}
	if !strings.Contains(output, "failed to start process") {
		t.Errorf("output should report the host error: %q", output)
	}
}

func TestCLIRunMissingFile(t *testing.T) {
	path, _ := fakeHost(t)
	if _, err := executeCommand(rootCmd, "--socket", path, "run", "/nonexistent/mod.wasm"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCLIShutdown(t *testing.T) {
	path, seen := fakeHost(t)

	if _, err := executeCommand(rootCmd, "--socket", path, "shutdown"); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if req := testutil.RequireReceive(t, seen, 5*time.Second, "shutdown request"); req.Op != control.OpShutdown {
		t.Errorf("op = %s", req.Op)
	}
}

func TestCLINoHost(t *testing.T) {
	path := testutil.SocketPath(t)
	if _, err := executeCommand(rootCmd, "--socket", path, "version"); err == nil {
		t.Fatal("expected error without a host")
	}
}

func TestSocketPathFromEnvironment(t *testing.T) {
	cmd := &cobra.Command{}
	addClientFlags(cmd.Flags())

	t.Setenv(EnvSocket, "")
	if got := socketPath(cmd.Flags()); got != defaultSocket {
		t.Errorf("default = %q", got)
	}

	t.Setenv(EnvSocket, "/run/asi/env.sock")
	if got := socketPath(cmd.Flags()); got != "/run/asi/env.sock" {
		t.Errorf("from env = %q", got)
	}

	if err := cmd.Flags().Set("socket", "/run/asi/flag.sock"); err != nil {
		t.Fatal(err)
	}
	if got := socketPath(cmd.Flags()); got != "/run/asi/flag.sock" {
		t.Errorf("flag should win, got %q", got)
	}
}

func TestConsoleExec(t *testing.T) {
	path, seen := fakeHost(t)
	module := writeModule(t, "mod")

	var out bytes.Buffer
	c := &console{client: control.NewClient(path), out: &out}
	ctx := context.Background()

	tests := []struct {
		line    string
		wantErr error
		wantOut string
		wantOp  *control.Op
	}{
		{line: "   "},
		{line: "help", wantOut: "shutdown"},
		{line: "version", wantOut: "1.0\n", wantOp: ptr(control.OpVersion)},
		{line: "run " + module, wantOut: "started " + module, wantOp: ptr(control.OpRun)},
		{line: "exit", wantErr: errQuit},
		{line: "shutdown", wantErr: errQuit, wantOp: ptr(control.OpShutdown)},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			err := c.exec(ctx, tt.line)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("exec(%q) = %v, want %v", tt.line, err, tt.wantErr)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
			if tt.wantOp != nil {
				req := testutil.RequireReceive(t, seen, 5*time.Second, "console request")
				if req.Op != *tt.wantOp {
					t.Errorf("op = %s, want %s", req.Op, *tt.wantOp)
				}
			}
		})
	}
}

func TestConsoleExecErrors(t *testing.T) {
	c := &console{client: control.NewClient(testutil.SocketPath(t)), out: &bytes.Buffer{}}
	for _, line := range []string{"bogus", "run", "run a b", "run /nonexistent/mod.wasm"} {
		err := c.exec(context.Background(), line)
		if err == nil || errors.Is(err, errQuit) {
			t.Errorf("exec(%q) = %v, want an error", line, err)
		}
	}
}

func ptr[T any](v T) *T { return &v }
