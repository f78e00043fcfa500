package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster[int](2)
	a := b.Subscribe()
	b.Broadcast(1)
	b.Broadcast(2)
	b.Broadcast(3) // a is full
	assert.Equal(t, 1, b.Dropped())

	late := b.Subscribe()
	assert.Equal(t, 3, <-late, "late subscriber gets the last value")

	assert.Equal(t, 1, <-a)
	assert.Equal(t, 2, <-a)

	b.Unsubscribe(late)
	_, ok := <-late
	assert.False(t, ok)

	b.Close()
	_, ok = <-a
	assert.False(t, ok)
	b.Broadcast(4) // no subscribers left
}
