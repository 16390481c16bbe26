package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShared_GetSetHas(t *testing.T) {
	t.Parallel()

	s := NewShared(nil)
	_, ok := s.Get("missing")
	assert.False(t, ok)
	assert.False(t, s.Has("missing"))

	s.Set("a", 1)
	s.Set("b", "two")
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, s.Has("b"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	s.Delete("a")
	assert.False(t, s.Has("a"))
}

func TestShared_AdoptsCallerMap(t *testing.T) {
	t.Parallel()

	data := map[string]any{"question": "q"}
	s := NewShared(data)
	s.Set("answer", "a")

	assert.Equal(t, "a", data["answer"], "writes must land in the caller's map")
}

func TestShared_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	s := NewShared(map[string]any{"k": 1})
	snap := s.Snapshot()
	snap["k"] = 2

	assert.Equal(t, 1, ValueOr(s, "k", 0))
}

func TestValue_Typed(t *testing.T) {
	t.Parallel()

	s := NewShared(map[string]any{"n": 3, "s": "x"})

	n, ok := Value[int](s, "n")
	require.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = Value[int](s, "s")
	assert.False(t, ok, "wrong type is reported as absent")

	assert.Equal(t, "fallback", ValueOr(s, "missing", "fallback"))
	assert.Equal(t, 0, ValueOr(s, "s", 0))
}

func TestParams_CloneMerge(t *testing.T) {
	t.Parallel()

	var nilParams Params
	assert.NotNil(t, nilParams.Clone())

	base := Params{"a": 1, "b": 2}
	merged := base.Merge(Params{"b": 3, "c": 4})

	assert.Equal(t, Params{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, Params{"a": 1, "b": 2}, base, "merge must not modify the receiver")

	assert.Equal(t, 3, ParamOr(merged, "b", 0))
	assert.Equal(t, "def", ParamOr(merged, "a", "def"))
}

func TestAction_Normalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultAction, Action("").normalize())
	assert.Equal(t, Action("x"), Action("x").normalize())
}
