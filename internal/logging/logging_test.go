package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelRouting(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := New(Options{Format: "json", Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("started")
	logger.Warn("slow")
	logger.Error("failed")
	cleanup()

	assert.Contains(t, stdout.String(), "started")
	assert.Contains(t, stdout.String(), "slow")
	assert.NotContains(t, stdout.String(), "failed")
	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stderr.String(), "failed")
	assert.NotContains(t, stderr.String(), "started")
}

func TestDebugLevelAndFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := New(Options{Level: "debug", File: path, Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)

	logger.Debug("details")
	logger.Error("boom")
	cleanup()

	assert.Contains(t, stdout.String(), "details")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "details")
	assert.Contains(t, string(data), "boom")
}

func TestInvalidOptions(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
	_, _, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}
