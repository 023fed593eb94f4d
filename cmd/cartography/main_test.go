package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cartography version "))
}

func TestRunAndInspectArchive(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	common := []string{"--source", "mock", "--archive", "file", "--archive-dir", dir}

	out, err := execute(t, append([]string{"run", "--no-banner", "--mermaid", "-n", "3"}, append(common, "why", "is", "the", "sky", "blue")...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Query: why is the sky blue")
	assert.Contains(t, out, "Step 3:")
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "graph TD")

	idx := strings.LastIndex(out, "archived as ")
	require.GreaterOrEqual(t, idx, 0)
	runID := strings.TrimSpace(out[idx+len("archived as "):])
	require.NotEmpty(t, runID)

	out, err = execute(t, append([]string{"runs", "ls"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "why is the sky blue")

	out, err = execute(t, append([]string{"runs", "graph", "--format", "json", runID}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"links"`)

	out, err = execute(t, append([]string{"runs", "rm", runID}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+runID)

	_, err = execute(t, append([]string{"runs", "inspect", runID}, common...)...)
	assert.Error(t, err)
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "run", "--json", "--source", "mock", "--archive", "none", "-n", "1", "q")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"type":"step_added"`)
	assert.Contains(t, lines[2], `"status":"completed"`)
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, err := execute(t, "run", "--source", "telepathy", "q")
	assert.ErrorContains(t, err, "telepathy")
}

func TestRunsWithoutArchive(t *testing.T) {
	_, err := execute(t, "runs", "ls", "--source", "mock", "--archive", "none")
	assert.ErrorContains(t, err, "no run archive configured")
}
