package loop

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_SendTake_FIFO(t *testing.T) {
	l := New()
	q, err := l.NewQueue("mailbox", 8)
	require.NoError(t, err)

	require.NoError(t, q.Send("a"))
	require.NoError(t, q.Send("b"))
	require.NoError(t, q.Send("c"))

	now := time.Now()
	for _, want := range []string{"a", "b", "c"} {
		require.True(t, q.ready(now))
		got, ok := q.take(now)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.False(t, q.ready(now), "drained queue should be unready")
}

func TestQueue_Take_Empty(t *testing.T) {
	l := New()
	q, err := l.NewQueue("mailbox", 4)
	require.NoError(t, err)

	_, ok := q.take(time.Now())
	assert.False(t, ok, "take from empty queue should return false")
}

func TestQueue_Send_Overflow(t *testing.T) {
	l := New()
	q, err := l.NewQueue("mailbox", 2)
	require.NoError(t, err)

	require.NoError(t, q.Send(1))
	require.NoError(t, q.Send(2))

	err = q.Send(3)
	require.Error(t, err)
	assert.True(t, IsQueueFull(err), "overflow should be a QUEUE_FULL error")
	assert.Equal(t, 2, q.Len(), "overflowing send must not enqueue")

	// Draining one slot makes room again.
	_, ok := q.take(time.Now())
	require.True(t, ok)
	assert.NoError(t, q.Send(3))
}

func TestQueue_InvalidCapacity(t *testing.T) {
	l := New()
	_, err := l.NewQueue("mailbox", 0)
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))

	_, err = l.NewQueue("mailbox", -1)
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))
}

func TestQueue_InputContract(t *testing.T) {
	l := New()
	q, err := l.NewQueue("mailbox", 4)
	require.NoError(t, err)

	c := q.Input()
	require.NotNil(t, c)
	assert.Equal(t, "mailbox", c.Name())
	assert.Equal(t, KindQueue, c.Kind())
	assert.Equal(t, 4, q.Cap())
}

func TestQueue_ThreadSafeProducers(t *testing.T) {
	l := New()
	const producers = 8
	const perProducer = 50

	q, err := l.NewQueue("mailbox", producers*perProducer)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Send(fmt.Sprintf("%d-%d", id, i)))
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())

	// Per-producer order is preserved even though interleaving is not.
	lastSeen := make(map[string]int)
	now := time.Now()
	for {
		m, ok := q.take(now)
		if !ok {
			break
		}
		var id, i int
		_, err := fmt.Sscanf(m.(string), "%d-%d", &id, &i)
		require.NoError(t, err)
		key := fmt.Sprintf("%d", id)
		if prev, seen := lastSeen[key]; seen {
			assert.Greater(t, i, prev, "producer %d messages out of order", id)
		}
		lastSeen[key] = i
	}
}
