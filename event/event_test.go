package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransition_MonotonicOrder(t *testing.T) {
	e := New[string]("k1", 0, "rec", RecordContext{Topic: "t"}, 100, 200, func() {})
	require.Equal(t, Created, e.State())

	require.NoError(t, e.Transition(ToProcess))
	require.NoError(t, e.Transition(Processing))
	require.NoError(t, e.Transition(ToFinalize))
	require.NoError(t, e.Transition(Finalizing))
	require.NoError(t, e.Transition(Done))
	require.Equal(t, Done, e.State())
}

func TestTransition_RejectsSkipAndBackward(t *testing.T) {
	e := New[string]("k1", 0, "rec", RecordContext{}, 0, 0, func() {})

	err := e.Transition(Processing) // skip ToProcess
	require.Error(t, err)
	var it *ErrInvalidTransition
	require.ErrorAs(t, err, &it)
	require.Equal(t, Created, e.State())

	require.NoError(t, e.Transition(ToProcess))
	require.NoError(t, e.Transition(Processing))
	err = e.Transition(ToProcess) // backward
	require.Error(t, err)
}

func TestAppendForwardWrite_OnlyDuringProcessing(t *testing.T) {
	e := New[string]("k1", 0, nil, RecordContext{}, 0, 0, func() {})

	require.Error(t, e.AppendForward(ForwardAction{Record: "r1"}))
	require.Error(t, e.AppendWrite(WriteAction{Store: "s", Key: []byte("k")}))

	require.NoError(t, e.Transition(ToProcess))
	require.NoError(t, e.Transition(Processing))

	require.NoError(t, e.AppendForward(ForwardAction{Record: "r1"}))
	require.NoError(t, e.AppendForward(ForwardAction{Record: "r2"}))
	require.NoError(t, e.AppendWrite(WriteAction{Store: "s", Key: []byte("x"), Value: []byte("5")}))
	require.NoError(t, e.AppendWrite(WriteAction{Store: "s", Key: []byte("y"), Value: []byte("6")}))

	require.NoError(t, e.Transition(ToFinalize))
	// Once PROCESSING has ended, further appends are rejected.
	require.Error(t, e.AppendForward(ForwardAction{Record: "r3"}))
}

func TestNextForwardNextWrite_SubmissionOrder(t *testing.T) {
	e := New[string]("a", 0, nil, RecordContext{}, 0, 0, func() {})
	require.NoError(t, e.Transition(ToProcess))
	require.NoError(t, e.Transition(Processing))
	require.NoError(t, e.AppendForward(ForwardAction{Record: "R1"}))
	require.NoError(t, e.AppendWrite(WriteAction{Store: "x", Key: []byte("k"), Value: []byte("5")}))
	require.NoError(t, e.AppendForward(ForwardAction{Record: "R2"}))
	require.NoError(t, e.AppendWrite(WriteAction{Store: "y", Key: []byte("k"), Value: []byte("6")}))
	require.NoError(t, e.Transition(ToFinalize))
	require.NoError(t, e.Transition(Finalizing))

	f1, ok := e.NextForward()
	require.True(t, ok)
	require.Equal(t, "R1", f1.Record)

	w1, ok := e.NextWrite()
	require.True(t, ok)
	require.Equal(t, []byte("5"), w1.Value)

	f2, ok := e.NextForward()
	require.True(t, ok)
	require.Equal(t, "R2", f2.Record)

	w2, ok := e.NextWrite()
	require.True(t, ok)
	require.Equal(t, []byte("6"), w2.Value)

	_, ok = e.NextForward()
	require.False(t, ok)
	_, ok = e.NextWrite()
	require.False(t, ok)
	require.True(t, e.Drained())
}

func TestScratchOverlay_OptIn(t *testing.T) {
	e := New[string]("a", 0, nil, RecordContext{}, 0, 0, func() {})
	e.ScratchEnabled = true
	require.NoError(t, e.Transition(ToProcess))
	require.NoError(t, e.Transition(Processing))

	_, _, found := e.ScratchGet("s", []byte("k"))
	require.False(t, found)

	require.NoError(t, e.AppendWrite(WriteAction{Store: "s", Key: []byte("k"), Value: []byte("v1")}))
	v, tomb, found := e.ScratchGet("s", []byte("k"))
	require.True(t, found)
	require.False(t, tomb)
	require.Equal(t, []byte("v1"), v)

	require.NoError(t, e.AppendWrite(WriteAction{Store: "s", Key: []byte("k"), Tombstone: true}))
	_, tomb, found = e.ScratchGet("s", []byte("k"))
	require.True(t, found)
	require.True(t, tomb)
}

func TestScratchOverlay_DisabledByDefault(t *testing.T) {
	e := New[string]("a", 0, nil, RecordContext{}, 0, 0, func() {})
	require.NoError(t, e.Transition(ToProcess))
	require.NoError(t, e.Transition(Processing))
	require.NoError(t, e.AppendWrite(WriteAction{Store: "s", Key: []byte("k"), Value: []byte("v1")}))

	_, _, found := e.ScratchGet("s", []byte("k"))
	require.False(t, found, "scratch overlay must stay opt-in")
}

func TestSetErrFailed(t *testing.T) {
	e := New[string]("a", 0, nil, RecordContext{}, 0, 0, func() {})
	_, failed := e.Failed()
	require.False(t, failed)

	e.SetErr(errors.New("boom"))
	_, failed = e.Failed()
	require.True(t, failed)
}
