package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/crudcheck/internal/models"
)

var fastBackoff = Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}

func TestBackoffNext(t *testing.T) {
	b := Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 20*time.Millisecond, b.Next(10*time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, b.Next(20*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, b.Next(40*time.Millisecond))
	assert.Equal(t, 20*time.Millisecond, b.Next(0))
}

func TestPollSucceedsAfterSeveralChecks(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), fastBackoff, time.Second, "ready", func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollZeroTimeoutChecksOnce(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), fastBackoff, 0, "probe", func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})

	var timeout *models.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "probe", timeout.Operation)
	assert.Equal(t, 1, calls)
}

func TestPollTimesOut(t *testing.T) {
	start := time.Now()
	err := Poll(context.Background(), fastBackoff, 30*time.Millisecond, "never", func(ctx context.Context) (bool, error) {
		return false, nil
	})

	assert.Equal(t, models.KindTimeout, models.ErrorKind(err))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPollConditionErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Poll(context.Background(), fastBackoff, time.Second, "x", func(ctx context.Context) (bool, error) {
		calls++
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPollHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Poll(ctx, fastBackoff, time.Minute, "scenario", func(ctx context.Context) (bool, error) {
		return false, nil
	})

	var timeout *models.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
