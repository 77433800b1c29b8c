package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := NewBackoff(time.Millisecond, 3).Do(context.Background(), func(i int) error {
		calls++
		if i < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_GivesUp(t *testing.T) {
	calls := 0
	err := NewBackoff(time.Millisecond, 2).Do(context.Background(), func(int) error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
}

func TestBackoff_Stop(t *testing.T) {
	final := errors.New("bad request")
	calls := 0
	err := NewBackoff(time.Millisecond, 5).Do(context.Background(), func(int) error {
		calls++
		return Stop(final)
	})
	assert.Same(t, final, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewBackoff(time.Second, 5).Do(ctx, func(int) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}
