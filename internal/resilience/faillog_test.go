package resilience

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureLog_FlushWritesEntries(t *testing.T) {
	log := NewFailureLog("describe")
	log.Add("US1", "https://patents.google.com/patent/US1/en", NewTransientError(errors.New("http 503"), 503))
	log.Add("US2", "", errors.New("missing identifier"))
	require.Equal(t, 2, log.Len())

	path := filepath.Join(t.TempDir(), "failed_patents.json")
	require.NoError(t, log.Flush(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []FailureEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	assert.Equal(t, "US1", entries[0].PatentID)
	assert.Equal(t, "transient", entries[0].ErrorType)
	assert.Equal(t, "describe", entries[0].Stage)
	assert.Equal(t, log.RunID(), entries[0].RunID)

	assert.Equal(t, "US2", entries[1].PatentID)
	assert.Equal(t, "permanent", entries[1].ErrorType)
}

func TestFailureLog_EmptyFlushWritesNothing(t *testing.T) {
	log := NewFailureLog("collect")
	path := filepath.Join(t.TempDir(), "failed_patents.json")
	require.NoError(t, log.Flush(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
