package telemetry

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *SearchLog {
	t.Helper()
	l, err := OpenSearchLog(filepath.Join(t.TempDir(), LogFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestSearchLog_RecordFillsIDAndTimestamp(t *testing.T) {
	l := openTestLog(t)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	e, err := l.Record(context.Background(), Entry{Query: "Kündigungsfrist", ResultCount: 2, Alpha: 0.5, K: 3, LatencyMs: 12})
	require.NoError(t, err)

	assert.Len(t, e.ID, 36)
	assert.Equal(t, fixed, e.Timestamp)

	entries, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e, entries[0])
}

func TestSearchLog_RecentNewestFirst(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	for _, q := range []string{"eins", "zwei", "drei"} {
		_, err := l.Record(ctx, Entry{Query: q})
		require.NoError(t, err)
	}

	entries, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "drei", entries[0].Query)
	assert.Equal(t, "zwei", entries[1].Query)

	all, err := l.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSearchLog_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), LogFileName)
	l, err := OpenSearchLog(path)
	require.NoError(t, err)
	_, err = l.Record(context.Background(), Entry{Query: "Zession"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = OpenSearchLog(path)
	require.NoError(t, err)
	defer l.Close()

	entries, err := l.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Zession", entries[0].Query)
}

func TestSearchLog_ExportCSV(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	_, err := l.Record(ctx, Entry{Query: "erste, mit Komma", ResultCount: 1, Alpha: 0.25, K: 3, LatencyMs: 5})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{Query: "zweite", ResultCount: 0, Alpha: 1, K: 10, LatencyMs: 700})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, l.ExportCSV(ctx, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, "erste, mit Komma", records[1][2])
	assert.Equal(t, "0.25", records[1][4])
	assert.Equal(t, "zweite", records[2][2])
	assert.Equal(t, "700", records[2][6])
}

func TestSearchLog_InMemoryConcurrentRecord(t *testing.T) {
	l, err := OpenSearchLog("")
	require.NoError(t, err)
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Record(context.Background(), Entry{Query: "parallel"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := l.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestSearchLog_CloseNil(t *testing.T) {
	var l *SearchLog
	assert.NoError(t, l.Close())
}
