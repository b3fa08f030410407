//go:build integration

// Package containers starts the Postgres instance the integration suites run
// against. One container serves every suite in a test binary; suites isolate
// themselves by truncating tables in SetupTest.
package containers

import (
	"context"
	"os"
	"sync"
	"testing"
)

var (
	sharedOnce sync.Once
	shared     *PostgresContainer
	sharedErr  error
)

// Postgres returns the shared container, starting it on first use. A failed
// start is remembered so later suites fail fast instead of retrying. Setting
// ORBIT_SKIP_CONTAINERS skips the calling test instead.
func Postgres(t *testing.T) *PostgresContainer {
	t.Helper()
	if os.Getenv("ORBIT_SKIP_CONTAINERS") != "" {
		t.Skip("ORBIT_SKIP_CONTAINERS is set")
	}

	sharedOnce.Do(func() {
		shared, sharedErr = startPostgres(context.Background())
	})
	if sharedErr != nil {
		t.Fatalf("postgres container: %v", sharedErr)
	}
	return shared
}
