package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressCall struct{ done, total int64 }

func TestProgressWriter_EmitsOnPercentRise(t *testing.T) {
	var calls []progressCall
	w := newProgressWriter(context.Background(), 100, time.Hour, func(done, total int64) {
		calls = append(calls, progressCall{done, total})
	})

	for i := 0; i < 10; i++ {
		_, err := w.Write(make([]byte, 10))
		require.NoError(t, err)
	}

	require.Len(t, calls, 10)
	assert.Equal(t, progressCall{100, 100}, calls[9])
}

func TestProgressWriter_ThrottlesWithinPercent(t *testing.T) {
	var calls int
	w := newProgressWriter(context.Background(), 1_000_000, time.Hour, func(done, total int64) {
		calls++
	})

	for i := 0; i < 100; i++ {
		w.Write([]byte{0})
	}

	// 0% on the first write, one interval tick, then nothing until the percentage rises
	assert.Equal(t, 2, calls)

	w.Finish()
	assert.Equal(t, 3, calls)
}

func TestProgressWriter_UnknownTotal(t *testing.T) {
	var last progressCall
	var calls int
	w := newProgressWriter(context.Background(), 0, time.Hour, func(done, total int64) {
		calls++
		last = progressCall{done, total}
	})

	w.Write(make([]byte, 5))
	w.Write(make([]byte, 5))
	w.Finish()

	assert.Equal(t, 2, calls, "first write plus finish")
	assert.Equal(t, progressCall{10, 0}, last)
}

func TestProgressWriter_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := newProgressWriter(ctx, 10, time.Hour, nil)

	_, err := w.Write([]byte{1})
	require.NoError(t, err)

	cancel()
	_, err = w.Write([]byte{1})
	assert.ErrorIs(t, err, context.Canceled)
}
