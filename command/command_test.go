package command

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmora/agentprobe"
)

func TestRun_CapturesStreamsSeparately(t *testing.T) {
	out, err := Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "out\n", out.Stdout)
	assert.Equal(t, "err\n", out.Stderr)
	assert.Equal(t, 0, out.ExitCode)
	assert.True(t, out.Success())
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	out, err := Run(context.Background(), Spec{Name: "sh", Args: []string{"-c", "exit 7"}})
	require.NoError(t, err)
	assert.Equal(t, 7, out.ExitCode)
	assert.False(t, out.Success())
}

func TestRun_DirAndEnv(t *testing.T) {
	dir := t.TempDir()
	out, err := Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "pwd; echo $PROBE_VALUE"},
		Dir:  dir,
		Env:  []string{"PROBE_VALUE=42"},
	})
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved+"\n42\n", out.Stdout)
}

func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	out, err := Run(context.Background(), Spec{
		Name:    "sh",
		Args:    []string{"-c", "echo started; sleep 30 & wait"},
		Timeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, agentprobe.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "started\n", out.Stdout)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err := Run(ctx, Spec{Name: "sleep", Args: []string{"30"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, agentprobe.ErrTimeout))
}

func TestRun_MissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Spec{Name: "definitely-not-a-real-binary-xyz"})
	assert.ErrorIs(t, err, agentprobe.ErrUnavailable)
}

func TestRun_MissingDirIsNotUnavailable(t *testing.T) {
	_, err := Run(context.Background(), Spec{Name: "sh", Args: []string{"-c", "true"}, Dir: filepath.Join(t.TempDir(), "gone")})
	require.Error(t, err)
	assert.False(t, errors.Is(err, agentprobe.ErrUnavailable))
}

func TestRun_EmptyName(t *testing.T) {
	_, err := Run(context.Background(), Spec{})
	assert.Error(t, err)
}

func TestNPM(t *testing.T) {
	bin := t.TempDir()
	script := "#!/bin/sh\nprintf '%s|' \"$@\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "npm"), []byte(script), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	if _, err := exec.LookPath("npm"); err != nil {
		t.Fatalf("fake npm not on PATH: %v", err)
	}

	out, err := NPM(context.Background(), t.TempDir(), "run  build")
	require.NoError(t, err)
	assert.Equal(t, "run|build|", out.Stdout)
}
