//go:build !windows

package infrastructure

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediashelf/pkg/logger"
)

func TestFetcherSpawner_CapturesOutputAndExitCode(t *testing.T) {
	spawner := NewFetcherSpawner("sh", nil, nil)

	proc, err := spawner.Spawn("dl-1", []string{"-c", "echo hello; echo oops 1>&2; exit 3"})
	require.NoError(t, err)
	assert.Greater(t, proc.Pid(), 0)

	out, err := io.ReadAll(proc.Stdout())
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "oops\n", proc.StderrTail())
}

func TestFetcherSpawner_TerminateKillsWholeGroup(t *testing.T) {
	spawner := NewFetcherSpawner("sh", nil, nil)

	// the background sleep stands in for a merger child holding stdout open
	proc, err := spawner.Spawn("dl-2", []string{"-c", "sleep 30 & sleep 30"})
	require.NoError(t, err)

	require.NoError(t, proc.Terminate())

	select {
	case <-proc.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("fetcher did not exit after terminate")
	}

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, proc.Stdout())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stdout stayed open, child survived the group kill")
	}

	code, _ := proc.Wait()
	assert.NotEqual(t, 0, code)
	assert.NoError(t, proc.Terminate(), "terminating an exited process is a no-op")
}

func TestFetcherSpawner_WritesDownloadLog(t *testing.T) {
	dir := t.TempDir()
	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{LogsDir: dir})
	require.NoError(t, err)
	defer ml.Close()

	spawner := NewFetcherSpawner("sh", ml, nil)
	proc, err := spawner.Spawn("dl-3", []string{"-c", "echo '[download] Destination: a b.mp4'"})
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, proc.Stdout())
	_, err = proc.Wait()
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "download-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "Download: dl-3")
	assert.Contains(t, log, "$ sh -c ")
	assert.Contains(t, log, "[download] Destination: a b.mp4")
	assert.True(t, strings.Contains(log, "SUCCESS: exit code 0"))
}

func TestFetcherSpawner_MissingBinary(t *testing.T) {
	spawner := NewFetcherSpawner(filepath.Join(t.TempDir(), "no-such-fetcher"), nil, nil)
	_, err := spawner.Spawn("dl-4", nil)
	assert.Error(t, err)
}

func TestTailBuffer_KeepsLastBytes(t *testing.T) {
	tb := newTailBuffer(4)
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defg"))
	assert.Equal(t, "defg", tb.String())
}
