package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketfw/reactor/internal/loop"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestStore_RecordAndReadBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := []loop.Dispatch{
		{Seq: 1, Pass: 1, Token: "sub-1", Contract: "tick", Kind: loop.KindTimer},
		{Seq: 2, Pass: 2, Token: "sub-2", Contract: "mailbox", Kind: loop.KindQueue, Data: "hello"},
		{Seq: 3, Pass: 2, Token: "sub-3", Contract: "PA7", Kind: loop.KindInterrupt},
	}
	for _, d := range in {
		require.NoError(t, s.Record(ctx, d))
	}

	got, err := s.Dispatches(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, "tick", got[0].Contract)
	assert.Equal(t, loop.KindTimer, got[0].Kind)
	assert.Nil(t, got[0].Data)

	assert.Equal(t, "mailbox", got[1].Contract)
	assert.Equal(t, "hello", got[1].Data)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_RecordIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d := loop.Dispatch{Seq: 7, Pass: 3, Token: "sub-1", Contract: "tick", Kind: loop.KindTimer}
	require.NoError(t, s.Record(ctx, d))
	require.NoError(t, s.Record(ctx, d), "same seq twice is a no-op")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_StructuredData(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	payload := map[string]any{"key": "CTRL", "code": float64(0x0100)}
	require.NoError(t, s.Record(ctx, loop.Dispatch{
		Seq: 1, Pass: 1, Token: "sub-1", Contract: "keys", Kind: loop.KindQueue, Data: payload,
	}))

	got, err := s.Dispatches(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0].Data)
}

func TestStore_AsLoopRecorder(t *testing.T) {
	s := openTestStore(t)

	var _ loop.Recorder = s

	l := loop.New(
		loop.WithTokenGenerator(loop.NewSequentialGenerator("sub")),
		loop.WithRecorder(s),
	)
	q, err := l.NewQueue("mailbox", 4)
	require.NoError(t, err)
	require.NoError(t, q.Send("a"))
	require.NoError(t, q.Send("b"))

	_, err = l.Subscribe(q.Input(), func(sub *loop.Subscription, ev loop.Event, state []any) []any {
		if ev.Data == "b" {
			sub.Loop().Stop()
		}
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Run(ctx))

	got, err := s.Dispatches(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Data)
	assert.Equal(t, "b", got[1].Data)
	assert.Equal(t, "sub-1", got[0].Token)
}
