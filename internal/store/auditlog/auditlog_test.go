package auditlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRecordRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.db")
	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Record(ctx, Entry{
		TS: 100, Action: "submit", Venue: "binance", OrderID: 1, ExternalID: "ext-1", Status: "open",
	}))
	require.NoError(t, st.Record(ctx, Entry{
		TS: 200, Action: "reconcile", Venue: "binance", OrderID: 1, ExternalID: "ext-1", Status: "closed", FilledAmount: 2,
	}))

	got, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "reconcile", got[0].Action, "newest first")
	assert.Equal(t, "closed", got[0].Status)
	assert.Equal(t, 2.0, got[0].FilledAmount)
	assert.Equal(t, "submit", got[1].Action)
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Record(context.Background(), Entry{Action: "push", OrderID: 3}))

	got, err := st.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotZero(t, got[0].TS)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestClosedStoreErrors(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	assert.Error(t, st.Record(context.Background(), Entry{Action: "submit"}))
	_, err = st.Recent(context.Background(), 1)
	assert.Error(t, err)
}
