package redisad

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"boat_rental/internal/domain"
)

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	ctx := context.Background()

	var missed map[string]string
	ok, err := c.Get(ctx, "boat:x:en_EN", &missed)
	require.NoError(t, err)
	require.False(t, ok)

	in := map[string]string{"slug": "x", "title": "Bavaria 46"}
	require.NoError(t, c.Set(ctx, "boat:x:en_EN", in, 60))

	var out map[string]string
	ok, err = c.Get(ctx, "boat:x:en_EN", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, out)

	mr.FastForward(61 * time.Second)
	ok, _ = c.Get(ctx, "boat:x:en_EN", &out)
	require.False(t, ok, "entry should expire")

	require.NoError(t, c.Set(ctx, "boat:x:en_EN", in, 60))
	require.NoError(t, c.Del(ctx, "boat:x:en_EN"))
	ok, _ = c.Get(ctx, "boat:x:en_EN", &out)
	require.False(t, ok)
}

func TestQueueFIFO(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	q := NewQueue(c.Client(), "parse:queue")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, domain.ParseJob{Slug: "first"}))
	require.NoError(t, q.Enqueue(ctx, domain.ParseJob{Slug: "second", Attempt: 2}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	job, ok, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", job.Slug)

	job, ok, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", job.Slug)
	require.Equal(t, 2, job.Attempt)
}

func TestQueueEmptyDequeue(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	q := NewQueue(c.Client(), "")

	_, ok, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
