package proc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmcp/bridge/proc"
)

func TestRun_Success(t *testing.T) {
	result, err := proc.Run(context.Background(), "/bin/sh",
		[]string{"-c", "printf ok; printf err >&2"},
		proc.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Stdout)
	assert.Equal(t, "err", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("hi"), 0o644))

	result, err := proc.Run(context.Background(), "/bin/sh",
		[]string{"-c", "cat marker"},
		proc.Options{Timeout: 5 * time.Second, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Stdout)
}

func TestRun_NonZeroExit(t *testing.T) {
	_, err := proc.Run(context.Background(), "/bin/sh",
		[]string{"-c", "echo partial; echo boom >&2; exit 3"},
		proc.Options{Timeout: 5 * time.Second})
	require.Error(t, err)

	var procErr *proc.Error
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, proc.KindExit, procErr.Kind)
	assert.Equal(t, 3, procErr.ExitCode)
	assert.Equal(t, "partial\n", procErr.Stdout)
	assert.Contains(t, err.Error(), "exited with code 3")
	assert.Contains(t, err.Error(), "boom")
}

func TestRun_Timeout(t *testing.T) {
	_, err := proc.Run(context.Background(), "/bin/sh",
		[]string{"-c", "echo started; sleep 5"},
		proc.Options{Timeout: 500 * time.Millisecond})
	require.Error(t, err)

	var procErr *proc.Error
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, proc.KindTimeout, procErr.Kind)
	assert.Contains(t, err.Error(), "timed out after 500ms")
	assert.Contains(t, procErr.Stdout, "started")
}

func TestRun_TimeoutKillsChildProcesses(t *testing.T) {
	// The shell spawns its own child; the rejection must not wait for it.
	start := time.Now()
	_, err := proc.Run(context.Background(), "/bin/sh",
		[]string{"-c", "echo started; sleep 30 & wait"},
		proc.Options{Timeout: 500 * time.Millisecond})
	elapsed := time.Since(start)
	require.Error(t, err)

	var procErr *proc.Error
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, proc.KindTimeout, procErr.Kind)
	assert.Contains(t, procErr.Stdout, "started")
	assert.Less(t, elapsed, 3*time.Second, "timeout rejection must not wait for the command's own children")
}

func TestRun_NotFound(t *testing.T) {
	_, err := proc.Run(context.Background(), "no-such-binary-for-sure",
		[]string{"-p", "hello"},
		proc.Options{Timeout: time.Second})
	require.Error(t, err)

	var procErr *proc.Error
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, proc.KindNotFound, procErr.Kind)
	assert.Contains(t, err.Error(), "no-such-binary-for-sure")
}

func TestRun_RequiresPositiveTimeout(t *testing.T) {
	_, err := proc.Run(context.Background(), "/bin/sh", nil, proc.Options{})
	require.Error(t, err)
	var procErr *proc.Error
	assert.False(t, errors.As(err, &procErr))
}
