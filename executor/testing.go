package executor

import (
	"io"
	"log/slog"
	"sync"
)

// TestExecutor provides a shared executor for tests to avoid repeated runtime
// setup. Use GetTestExecutor() to get a shared instance that's reused across
// tests. Module output and logs are discarded.
var (
	testExecutor     *Executor
	testExecutorOnce sync.Once
	testExecutorErr  error
)

// GetTestExecutor returns a shared executor for testing.
// The executor is created once and reused.
func GetTestExecutor() (*Executor, error) {
	testExecutorOnce.Do(func() {
		testExecutor, testExecutorErr = New(
			WithLogger(slog.New(slog.DiscardHandler)),
			WithStdout(io.Discard),
			WithStderr(io.Discard),
		)
	})
	return testExecutor, testExecutorErr
}

// CloseTestExecutor closes the shared test executor.
// Call this in TestMain if needed, but typically not necessary.
func CloseTestExecutor() {
	if testExecutor != nil {
		testExecutor.Close()
		testExecutor = nil
		testExecutorOnce = sync.Once{} // Reset for next test run
	}
}
