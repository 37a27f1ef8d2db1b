package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmcp/bridge/cli"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestVersionProber_Success(t *testing.T) {
	path := writeStub(t, "#!/bin/sh\necho 1.2.3\n")
	prober := cli.NewVersionProber(path, zerolog.Nop())
	assert.Equal(t, "1.2.3", prober.Version(context.Background()))
}

func TestVersionProber_CachesFirstResult(t *testing.T) {
	path := writeStub(t, "#!/bin/sh\necho 1.2.3\n")
	prober := cli.NewVersionProber(path, zerolog.Nop())
	require.Equal(t, "1.2.3", prober.Version(context.Background()))

	// a successful probe is final; the CLI is not re-run
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho 9.9.9\n"), 0o755))
	assert.Equal(t, "1.2.3", prober.Version(context.Background()))
}

func TestVersionProber_EmptyOutput(t *testing.T) {
	path := writeStub(t, "#!/bin/sh\nexit 0\n")
	prober := cli.NewVersionProber(path, zerolog.Nop())
	assert.Equal(t, cli.VersionUnknown, prober.Version(context.Background()))
}

func TestVersionProber_FailureSentinelAndRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	prober := cli.NewVersionProber(path, zerolog.Nop())
	require.Equal(t, cli.VersionUnknown, prober.Version(context.Background()))

	// a failed probe is retried once the CLI shows up
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho 2.0.0\n"), 0o755))
	assert.Equal(t, "2.0.0", prober.Version(context.Background()))
}

func TestVersionProber_ProbesOnceUnderContention(t *testing.T) {
	dir := t.TempDir()
	count := filepath.Join(dir, "count")
	path := filepath.Join(dir, "agent")
	require.NoError(t, os.WriteFile(path,
		[]byte("#!/bin/sh\necho run >> "+count+"\necho 1.2.3\n"), 0o755))

	prober := cli.NewVersionProber(path, zerolog.Nop())
	prober.Start(context.Background())

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = prober.Version(context.Background())
		}(i)
	}
	wg.Wait()

	for _, version := range results {
		assert.Equal(t, "1.2.3", version)
	}
	data, err := os.ReadFile(count)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "run"), "the CLI must be probed exactly once")
}

func TestVersionProber_StartDoesNotBlock(t *testing.T) {
	path := writeStub(t, "#!/bin/sh\necho 1.2.3\n")
	prober := cli.NewVersionProber(path, zerolog.Nop())
	prober.Start(context.Background())
	// Version waits for a result regardless of the async probe's progress.
	assert.Equal(t, "1.2.3", prober.Version(context.Background()))
}
