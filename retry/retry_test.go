/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

var errTemporary = errors.New("temporary")

func TestDoWithRetry(t *testing.T) {
	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		notified := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), nil,
			func(error, time.Duration) { notified++ },
			func(context.Context) error {
				calls++
				if calls < 3 {
					return errTemporary
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
		require.Equal(t, 2, notified)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 2), nil, nil,
			func(context.Context) error {
				calls++
				return errTemporary
			})
		require.ErrorIs(t, err, errTemporary)
		require.Equal(t, 3, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		errPermanent := errors.New("permanent")
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5),
			func(err error) bool { return errors.Is(err, errTemporary) }, nil,
			func(context.Context) error {
				calls++
				return errPermanent
			})
		require.ErrorIs(t, err, errPermanent)
		require.Equal(t, 1, calls)
	})

	t.Run("canceled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := DoWithRetry(ctx, NewConstantBackoffPolicy(10*time.Millisecond, 0), nil, nil,
			func(context.Context) error {
				calls++
				cancel()
				return errTemporary
			})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})
}

func TestPolicies(t *testing.T) {
	b := NewConstantBackoffPolicy(time.Second, 2).NewBackOff()
	require.Equal(t, time.Second, b.NextBackOff())
	require.Equal(t, time.Second, b.NextBackOff())
	require.Equal(t, backoff.Stop, b.NextBackOff())

	b = ExponentialBackoffPolicy{InitialInterval: 100 * time.Millisecond, Multiplier: 2}.NewBackOff()
	first := b.NextBackOff()
	require.InDelta(t, float64(100*time.Millisecond), float64(first), float64(50*time.Millisecond))

	b = PolicyFunc(func() backoff.BackOff { return &backoff.StopBackOff{} }).NewBackOff()
	require.Equal(t, backoff.Stop, b.NextBackOff())
}
