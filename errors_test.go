package asyncproc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindUserCallback, cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "user_callback")
	require.Contains(t, err.Error(), "boom")
}

func TestTaskError_CorrelatesKeyAndUnwraps(t *testing.T) {
	cause := errors.New("panic: boom")
	inner := newError(KindUserCallback, cause)
	te := &TaskError{Err: inner, Key: "k1", Partition: 2}

	require.ErrorIs(t, te, cause)
	require.Contains(t, te.Error(), "k1")
	require.Contains(t, te.Error(), "partition=2")

	key, ok := ExtractTaskKey(te)
	require.True(t, ok)
	require.Equal(t, "k1", key)
}

func TestExtractTaskKey_FalseWhenNotATaskError(t *testing.T) {
	_, ok := ExtractTaskKey(errors.New("plain"))
	require.False(t, ok)
}

func TestWrapCallbackFailure_TagsPlainErrorAsUserCallback(t *testing.T) {
	err := wrapCallbackFailure(errors.New("boom"))
	require.Equal(t, KindUserCallback, err.Kind)
}

func TestWrapCallbackFailure_PreservesExistingKind(t *testing.T) {
	cause := newError(KindHostSideEffect, errors.New("store write failed"))
	err := wrapCallbackFailure(cause)
	require.Equal(t, KindHostSideEffect, err.Kind)
}

func TestSentinelErrors_DistinctAndMatchable(t *testing.T) {
	wrapped := newError(KindProgramming, ErrAlreadyInitialized)
	require.ErrorIs(t, wrapped, ErrAlreadyInitialized)
	require.NotErrorIs(t, wrapped, ErrClosed)
}
