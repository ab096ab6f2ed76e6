package gelly

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileInterpLiteralOnly(t *testing.T) {
	p, err := compileInterp("no placeholders here")
	require.NoError(t, err)
	assert.False(t, p.hasExpr())
	assert.Equal(t, "no placeholders here", p.evalText(context.Background(), NewScope(nil)))
}

func TestInterpMixed(t *testing.T) {
	s := NewScope(nil)
	s.Set("name", String("world"))

	p, err := compileInterp("hello ${name}!")
	require.NoError(t, err)
	assert.True(t, p.hasExpr())
	assert.Equal(t, "hello world!", p.evalText(context.Background(), s))
}

func TestInterpMissingVariableRendersEmpty(t *testing.T) {
	p, err := compileInterp("[${missing}]")
	require.NoError(t, err)
	assert.Equal(t, "[]", p.evalText(context.Background(), NewScope(nil)))
}

func TestInterpUnterminatedExpression(t *testing.T) {
	_, err := compileInterp("broken ${name")
	require.Error(t, err)
}

func TestInterpSinglePlaceholderKeepsNativeType(t *testing.T) {
	s := NewScope(nil)
	s.Set("n", Int(5))

	p, err := compileInterp("${n}")
	require.NoError(t, err)
	v := p.evalValue(context.Background(), s)
	assert.Equal(t, int64(5), v.Native())
}

func TestInterpExpressionArithmetic(t *testing.T) {
	s := NewScope(nil)
	s.Set("n", Int(2))

	p, err := compileInterp("${n + 1}")
	require.NoError(t, err)
	assert.Equal(t, "3", p.evalValue(context.Background(), s).Text())
}

func TestInterpRowFieldAccess(t *testing.T) {
	s := NewScope(nil)
	s.Set("users", RowsOf(Rows{{"name": String("alice")}}))

	p, err := compileInterp("${users[0].name}")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.evalText(context.Background(), s))
}
