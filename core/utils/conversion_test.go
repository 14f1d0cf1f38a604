package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{nil, 0},
		{int64(42), 42},
		{int32(7), 7},
		{uint8(3), 3},
		{float64(9.0), 9},
		{"15", 15},
		{[]byte("16"), 16},
		{"17.0", 17},
		{"abc", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToInt64(tt.in), "input %v", tt.in)
	}
}

func TestToString(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02 03:04:05", ToString(ts))
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "x", ToString([]byte("x")))
	assert.Equal(t, "12", ToString(int64(12)))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool("true"))
	assert.True(t, ToBool("1"))
	assert.True(t, ToBool(int64(1)))
	assert.False(t, ToBool("no"))
	assert.False(t, ToBool(nil))
}
