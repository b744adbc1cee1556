package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testT *testing.T

// SetT binds the helpers below to the running test.
func SetT(t *testing.T) {
	testT = t
}

func NoErr[T any](v T, err error) T {
	require.NoError(testT, err)
	return v
}

func Err[T any](_ T, err error) error {
	require.Error(testT, err)
	return err
}

// Recv waits for one value on ch, failing the test after timeout.
func Recv[T any](ch <-chan T, timeout time.Duration) T {
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.FailNow(testT, "timed out waiting for channel")
	}
	var zero T
	return zero
}

// NoRecv asserts nothing arrives on ch within d.
func NoRecv[T any](ch <-chan T, d time.Duration) {
	select {
	case v := <-ch:
		require.FailNow(testT, "unexpected value on channel", "%v", v)
	case <-time.After(d):
	}
}

func NoErr2[T, U any](v T, u U, err error) (T, U) {
	require.NoError(testT, err)
	return v, u
}
