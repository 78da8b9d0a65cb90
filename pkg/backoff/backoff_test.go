package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	t.Run("retries", func(t *testing.T) {
		b := New(3, time.Millisecond, time.Millisecond*4)
		for i := 0; i != 3; i++ {
			assert.True(t, b.Wait(context.Background()))
		}
		assert.False(t, b.Wait(context.Background()))
		assert.Equal(t, 3, b.Attempts())
	})

	t.Run("max backoff", func(t *testing.T) {
		b := New(0, time.Millisecond, time.Millisecond*2)
		for i := 0; i != 5; i++ {
			assert.True(t, b.Wait(context.Background()))
		}
		// Includes up to 10% jitter.
		assert.LessOrEqual(t, b.lastBackoff, time.Duration(float64(time.Millisecond*2)*1.1))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := New(0, time.Minute, time.Minute)
		assert.False(t, b.Wait(ctx))
	})
}
