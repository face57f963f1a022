package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristic_Ceil(t *testing.T) {
	c := NewHeuristic()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"абвгд", 2}, // runes, not bytes
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Count(tt.text), "%q", tt.text)
	}
	assert.Equal(t, Heuristic, c.Name())
}

func TestNew_EmptyNameIsHeuristic(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, Heuristic, c.Name())
}

func TestNew_UnknownEncodingFallsBack(t *testing.T) {
	c, err := New("no_such_encoding")
	assert.Error(t, err)
	require.NotNil(t, c)
	assert.Equal(t, Heuristic, c.Name())
	assert.Equal(t, 2, c.Count("hello"))
}

func TestCL100K_Monotone(t *testing.T) {
	c, err := New(CL100K)
	require.NoError(t, err)
	assert.Equal(t, CL100K, c.Name())

	short := c.Count("def add(a, b):\n    return a + b\n")
	long := c.Count(strings.Repeat("def add(a, b):\n    return a + b\n", 10))

	assert.Positive(t, short)
	assert.Greater(t, long, short)
	assert.Equal(t, 0, c.Count(""))
}
