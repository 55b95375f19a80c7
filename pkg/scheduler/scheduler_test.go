package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelayCountsTicks(t *testing.T) {
	s := New(nil)
	ran := 0
	s.Schedule(func() { ran++ }, 2)

	s.Advance()
	assert.Equal(t, 0, ran, "first tick")
	s.Advance()
	assert.Equal(t, 0, ran, "second tick")
	s.Advance()
	assert.Equal(t, 1, ran, "third tick")
	s.Advance()
	assert.Equal(t, 1, ran, "task must run exactly once")
	assert.Zero(t, s.Len())
}

func TestZeroDelayRunsOnNextTick(t *testing.T) {
	s := New(nil)
	ran := false
	s.Schedule(func() { ran = true }, 0)
	assert.False(t, ran)

	s.Advance()
	assert.True(t, ran)
}

func TestFIFOOrder(t *testing.T) {
	s := New(nil)
	var order []string
	s.Schedule(func() { order = append(order, "a") }, 1)
	s.Schedule(func() { order = append(order, "b") }, 0)
	s.Schedule(func() { order = append(order, "c") }, 1)
	s.Schedule(func() { order = append(order, "d") }, 0)

	s.Advance()
	s.Advance()
	assert.Equal(t, []string{"b", "d", "a", "c"}, order)
}

func TestScheduledDuringAdvanceWaits(t *testing.T) {
	s := New(nil)
	var order []string
	s.Schedule(func() {
		order = append(order, "outer")
		s.Schedule(func() { order = append(order, "inner") }, 0)
	}, 0)

	s.Advance()
	assert.Equal(t, []string{"outer"}, order)
	assert.Equal(t, 1, s.Len())

	s.Advance()
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestPanickingTaskIsDropped(t *testing.T) {
	s := New(nil)
	ran := false
	s.Schedule(func() { panic("boom") }, 0)
	s.Schedule(func() { ran = true }, 0)

	assert.NotPanics(t, s.Advance)
	assert.True(t, ran)
	assert.Zero(t, s.Len())
}

func TestClear(t *testing.T) {
	s := New(nil)
	s.Schedule(func() { t.Fatal("cleared task ran") }, 0)
	s.Clear()
	s.Advance()
	assert.Zero(t, s.Len())
}
