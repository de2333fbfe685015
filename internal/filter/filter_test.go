package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_InvalidExpression(t *testing.T) {
	_, err := Compile("status ==")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status ==")
}

func TestMatch(t *testing.T) {
	expr, err := Compile(`project == "backend"`)
	require.NoError(t, err)

	ok, err := expr.Match(map[string]any{"project": "backend", "status": 500})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = expr.Match(map[string]any{"project": "frontend"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRows_PreservesOrder(t *testing.T) {
	expr, err := Compile(`status == 500`)
	require.NoError(t, err)

	rows := []map[string]any{
		{"id": "a", "status": 500},
		{"id": "b", "status": 200},
		{"id": "c", "status": 500},
	}

	got, err := expr.Rows(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0]["id"])
	assert.Equal(t, "c", got[1]["id"])
}

func TestRows_Empty(t *testing.T) {
	expr, err := Compile(`status == 500`)
	require.NoError(t, err)

	got, err := expr.Rows(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
