package mock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_Frozen(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	c := NewClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestClock_Step(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.SetStep(time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Peek())
	assert.Equal(t, start.Add(2*time.Second), c.Peek())

	c.SetStep(0)
	assert.Equal(t, start.Add(2*time.Second), c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Now())
}

func TestNewClock_ZeroUsesNow(t *testing.T) {
	before := time.Now()
	assert.False(t, NewClock(time.Time{}).Now().Before(before))
}
