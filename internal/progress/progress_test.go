package progress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "progress.txt"), "test-run")
}

func readLog(t *testing.T, l *Log) string {
	t.Helper()
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	return string(data)
}

func TestAppend_CreatesFileWithHeader(t *testing.T) {
	l := newTestLog(t)

	require.NoError(t, l.Append("first entry"))

	content := readLog(t, l)
	assert.True(t, strings.HasPrefix(content, "# Ralph Progress Log\n"))
	assert.Contains(t, content, "# Run: test-run")
	assert.Contains(t, content, "first entry")
}

func TestAppend_PreservesOrder(t *testing.T) {
	l := newTestLog(t)

	entries := []string{"one", "two", "three"}
	for _, e := range entries {
		require.NoError(t, l.Append(e))
	}

	content := readLog(t, l)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	// Header is 3 comment lines plus a blank; entries follow in order.
	var got []string
	for _, line := range lines {
		if strings.HasPrefix(line, "[") {
			got = append(got, line[strings.Index(line, "] ")+2:])
		}
	}
	assert.Equal(t, entries, got)
}

func TestAppend_TimestampsEntries(t *testing.T) {
	l := newTestLog(t)
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	require.NoError(t, l.Append("stamped"))

	assert.Contains(t, readLog(t, l), "[2026-03-14T09:26:53Z] stamped")
}

func TestAppendTool_FramesLine(t *testing.T) {
	l := newTestLog(t)

	require.NoError(t, l.AppendTool("claude", "working on story 1"))

	assert.Contains(t, readLog(t, l), "[claude] working on story 1")
}

func TestReset_TruncatesAndRewritesHeader(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append("old entry"))

	require.NoError(t, l.Reset())

	content := readLog(t, l)
	assert.True(t, strings.HasPrefix(content, "# Ralph Progress Log\n"))
	assert.NotContains(t, content, "old entry")
}

func TestAppend_CreatesParentDirectory(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nested", "dir", "progress.txt"), "test-run")

	require.NoError(t, l.Append("entry"))
	assert.Contains(t, readLog(t, l), "entry")
}
