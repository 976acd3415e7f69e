package tui_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"workstack.dev/workstack/internal/tui"
)

func TestGetLogFilePath(t *testing.T) {
	t.Run("environment override wins", func(t *testing.T) {
		t.Setenv("WORKSTACK_LOG_FILE", "/tmp/custom-workstack.log")
		require.Equal(t, "/tmp/custom-workstack.log", tui.GetLogFilePath())
	})

	t.Run("defaults under the home directory", func(t *testing.T) {
		t.Setenv("WORKSTACK_LOG_FILE", "")
		path := tui.GetLogFilePath()
		require.True(t, strings.HasSuffix(path, filepath.Join(".workstack", "logs", "workstack.log")), path)
	})
}

func TestSplogFileLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "workstack.log")

	splog, err := tui.NewSplogWithFile(logPath)
	require.NoError(t, err)

	splog.Info("landing %s", "feat-1")
	require.NoError(t, splog.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "landing feat-1")
}

func TestSplogQuiet(t *testing.T) {
	splog := tui.NewSplog()
	require.False(t, splog.IsQuiet())

	splog.SetQuiet(true)
	require.True(t, splog.IsQuiet())
}
