package api

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in the api
// package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Idle keep-alive connections from the test HTTP client.
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
