package eventstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_AppendAndGetByRunID(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "run-1", TypeRunStarted, nil, nil))
	require.NoError(t, store.Append(ctx, "run-1", TypePageSynthesized, []byte(`{"slug":"overview"}`),
		map[string]string{"tier": "small"}))
	require.NoError(t, store.Append(ctx, "run-2", TypeRunStarted, nil, nil))

	events, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, TypeRunStarted, events[0].Type)
	require.Equal(t, TypePageSynthesized, events[1].Type)
	require.Equal(t, "small", events[1].Metadata["tier"])
	require.JSONEq(t, `{"slug":"overview"}`, string(events[1].Payload))
}

func TestSQLiteStore_UnknownRun_Empty(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	events, err := store.GetByRunID(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestNoop_AppendsNothing(t *testing.T) {
	var s Store = Noop{}
	require.NoError(t, s.Append(context.Background(), "r", TypeRunStarted, nil, nil))
	events, err := s.GetByRunID(context.Background(), "r")
	require.NoError(t, err)
	require.Empty(t, events)
}
