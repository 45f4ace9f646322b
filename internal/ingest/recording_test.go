package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRecorderAppendsTrimmedPayload(t *testing.T) {
	dir := t.TempDir()
	r, err := NewSnapshotRecorder(dir, 1024*1024)
	require.NoError(t, err)

	require.NoError(t, r.Write("  {\"a\":1}  \n"))
	require.NoError(t, r.Write("{\"a\":2}"))

	data, err := os.ReadFile(filepath.Join(dir, snapshotFileName))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(data))
}

func TestSnapshotRecorderRotatesOnSizeThreshold(t *testing.T) {
	dir := t.TempDir()
	r, err := NewSnapshotRecorder(dir, 10)
	require.NoError(t, err)
	r.nowFn = func() time.Time { return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, r.Write("0123456789012345"))
	require.NoError(t, r.Write("next"))

	rotated := filepath.Join(dir, "polygon_messages.20260730T120000.jsonl")
	_, err = os.Stat(rotated)
	require.NoError(t, err, "expected rotated file to exist")

	active, err := os.ReadFile(filepath.Join(dir, snapshotFileName))
	require.NoError(t, err)
	assert.Equal(t, "next\n", string(active))
}

func TestSnapshotRecorderNoRotationBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	r, err := NewSnapshotRecorder(dir, 1024)
	require.NoError(t, err)

	require.NoError(t, r.Write("small"))
	require.NoError(t, r.Write("small2"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
