package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeNumeric(t *testing.T) {
	c := NewColumn("cases", Int, 0)
	for _, v := range []any{int64(3), int64(1), nil, int64(3), int64(8)} {
		require.NoError(t, c.Append(v))
	}

	s := Summarize(c)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1, s.Nulls)
	assert.Equal(t, int64(1), s.Min)
	assert.Equal(t, int64(8), s.Max)
	require.NotNil(t, s.Mean)
	assert.InDelta(t, 3.75, *s.Mean, 1e-9)
	assert.Equal(t, int64(3), s.Mode)
}

func TestSummarizeStrings(t *testing.T) {
	c := NewColumn("district", String, 0)
	for _, v := range []any{"Adams", "Boulder", "Adams", nil} {
		require.NoError(t, c.Append(v))
	}

	s := Summarize(c)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1, s.Nulls)
	assert.Equal(t, "Adams", s.Min)
	assert.Equal(t, "Boulder", s.Max)
	assert.Nil(t, s.Mean)
	assert.Equal(t, "Adams", s.Mode)
}

func TestSummarizeModeTieBreaksLow(t *testing.T) {
	c := NewColumn("n", Int, 0)
	for _, v := range []any{int64(2), int64(1)} {
		require.NoError(t, c.Append(v))
	}
	s := Summarize(c)
	assert.Equal(t, int64(1), s.Mode)
}

func TestSummarizeAllNull(t *testing.T) {
	c := NewColumn("empty", Float, 3)
	s := Summarize(c)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 3, s.Nulls)
	assert.Nil(t, s.Min)
	assert.Nil(t, s.Max)
	assert.Nil(t, s.Mean)
	assert.Nil(t, s.Mode)
}
