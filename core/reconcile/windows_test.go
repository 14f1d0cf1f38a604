package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindows(t *testing.T) {
	assert.Equal(t, []Window{{1, 10}, {11, 20}, {21, 25}}, Windows(25, 10))
	assert.Equal(t, []Window{{1, 10}}, Windows(10, 10))
	assert.Equal(t, []Window{{1, 3}}, Windows(3, 10))
	assert.Nil(t, Windows(0, 10))
	assert.Nil(t, Windows(10, 0))
}

func TestWindows_Partition(t *testing.T) {
	for _, tc := range []struct{ max, width int64 }{{1, 1}, {97, 10}, {100, 10}, {1000, 7}} {
		ws := Windows(tc.max, tc.width)
		assert.Len(t, ws, int((tc.max+tc.width-1)/tc.width))

		// Every id in [1, max] is covered exactly once.
		next := int64(1)
		for _, w := range ws {
			assert.Equal(t, next, w.Start)
			assert.GreaterOrEqual(t, w.End, w.Start)
			assert.LessOrEqual(t, w.End-w.Start+1, tc.width)
			next = w.End + 1
		}
		assert.Equal(t, tc.max+1, next)
	}
}
