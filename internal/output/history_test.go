package output

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/burl/internal/metrics"
)

func TestAppendHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	first := sampleResult()
	second := sampleResult()
	second.RunID = "second"
	second.Errors = nil

	require.NoError(t, AppendHistory(path, first))
	require.NoError(t, AppendHistory(path, second))

	entries, err := ReadHistory(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, first.RunID, entries[0].RunID)
	assert.Equal(t, first.URL, entries[0].URL)
	assert.Equal(t, int64(20), entries[0].Errors["timeout"])
	assert.Equal(t, int64(950), entries[0].StatusCodes[200])
	assert.InDelta(t, 400, entries[0].LatencyP99, 1e-9)
	assert.True(t, first.StartedAt.Equal(entries[0].StartedAt))

	assert.Equal(t, "second", entries[1].RunID)
	assert.Nil(t, entries[1].Errors)
}

func TestAppendHistoryConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- AppendHistory(path, sampleResult())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := ReadHistory(path)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestAppendHistoryErrors(t *testing.T) {
	assert.Error(t, AppendHistory("", metrics.Result{}))
	assert.Error(t, AppendHistory(filepath.Join(t.TempDir(), "missing", "history.jsonl"), metrics.Result{}))
}

func TestReadHistoryRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"run_id\":\"a\"}\n\nnot json\n"), 0o600))

	_, err := ReadHistory(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history line 3")
}
