package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/truenasctl/internal/db"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestLedger_AppendAndByRun(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Append(Entry{
		RunID:     "run-1",
		EventType: EventApplied,
		Kind:      "cronjob",
		Key:       "run a script",
		Action:    "create",
		Changed:   true,
		Message:   "cron set",
		Payload:   map[string]any{"id": "1"},
	}))
	require.NoError(t, l.Append(Entry{
		RunID:     "run-1",
		EventType: EventFailed,
		Kind:      "tunable",
		Key:       "SYSCTL/wg",
		Action:    "none",
		Error:     "Error fetching truenas tunables: boom",
	}))
	require.NoError(t, l.Append(Entry{RunID: "run-2", EventType: EventPlanned, Kind: "tunable", Key: "RC/x", Action: "none"}))

	entries, err := l.ByRun("run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, EventApplied, entries[0].EventType)
	assert.True(t, entries[0].Changed)
	assert.Equal(t, "cron set", entries[0].Message)
	assert.Equal(t, map[string]any{"id": "1"}, entries[0].Payload)

	assert.Equal(t, EventFailed, entries[1].EventType)
	assert.False(t, entries[1].Changed)
	assert.Equal(t, "Error fetching truenas tunables: boom", entries[1].Error)
	assert.Nil(t, entries[1].Payload)
}

func TestLedger_RecentNewestFirst(t *testing.T) {
	l := newLedger(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, l.Append(Entry{
			RunID:     "r",
			EventType: EventApplied,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Kind:      "cronjob",
			Key:       key,
			Action:    "none",
		}))
	}

	entries, err := l.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
	assert.Equal(t, base.Add(2*time.Minute), entries[0].Timestamp)
}

func TestLedger_DeleteOlderThan(t *testing.T) {
	l := newLedger(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.NoError(t, l.Append(Entry{RunID: "old", EventType: EventApplied, Timestamp: now.AddDate(0, 0, -40), Kind: "k", Key: "a", Action: "none"}))
	require.NoError(t, l.Append(Entry{RunID: "new", EventType: EventApplied, Kind: "k", Key: "b", Action: "none"}))

	n, err := l.DeleteOlderThan(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].RunID)
}
