package gelly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLookupFallsBackToParent(t *testing.T) {
	parent := NewScope(nil)
	parent.Set("name", String("parent"))
	parent.Set("shared", String("from-parent"))

	child := NewScope(parent)
	child.Set("name", String("child"))

	assert.Equal(t, "child", child.Get("name").Str())
	assert.Equal(t, "from-parent", child.Get("shared").Str())
	assert.Equal(t, "parent", parent.Get("name").Str())
}

func TestScopeMissingIsAbsentNotError(t *testing.T) {
	s := NewScope(nil)
	v := s.Get("nope")
	assert.True(t, v.IsAbsent())
	assert.Equal(t, "", v.Text())
}

func TestScopeWritesAreLocal(t *testing.T) {
	parent := NewScope(nil)
	child := NewScope(parent)

	child.Set("x", Int(1))
	assert.True(t, parent.Get("x").IsAbsent())

	child.SetRoot("y", Int(2))
	assert.Equal(t, int64(2), parent.Get("y").Native())
}

func TestValueText(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"absent", Absent, ""},
		{"string", String("hi"), "hi"},
		{"int", Int(42), "42"},
		{"float", Float(1.5), "1.5"},
		{"bool", Bool(true), "true"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.Text())
		})
	}
}

func TestFromNative(t *testing.T) {
	assert.Equal(t, KindAbsent, FromNative(nil).Kind())
	assert.Equal(t, KindString, FromNative("s").Kind())
	assert.Equal(t, KindString, FromNative([]byte("b")).Kind())
	assert.Equal(t, KindInt, FromNative(7).Kind())
	assert.Equal(t, KindInt, FromNative(int64(7)).Kind())
	assert.Equal(t, KindFloat, FromNative(1.25).Kind())
	assert.Equal(t, KindBool, FromNative(false).Kind())
	assert.Equal(t, KindTime, FromNative(time.Now()).Kind())
	assert.Equal(t, KindList, FromNative([]string{"a", "b"}).Kind())
}

func TestSnapshotChildShadowsParent(t *testing.T) {
	parent := NewScope(nil)
	parent.Set("a", String("p"))
	parent.Set("b", String("p"))
	child := NewScope(parent)
	child.Set("a", String("c"))

	m := child.snapshot()
	require.Equal(t, "c", m["a"])
	require.Equal(t, "p", m["b"])
}

func TestRowsNative(t *testing.T) {
	rows := Rows{
		{"id": Int(1), "name": String("alice")},
		{"id": Int(2), "name": String("bob")},
	}
	v := RowsOf(rows)
	native, ok := v.Native().([]any)
	require.True(t, ok)
	require.Len(t, native, 2)
	first, ok := native[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", first["name"])
}
