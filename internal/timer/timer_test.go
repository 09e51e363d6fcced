package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetTimeoutFires(t *testing.T) {
	r := New()
	done := make(chan struct{})
	r.SetTimeout(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestClearCancelsBeforeFire(t *testing.T) {
	r := New()
	var fired atomic.Bool
	id := r.SetTimeout(200*time.Millisecond, func() { fired.Store(true) })
	r.Clear(id)

	time.Sleep(300 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestIntervalStopsOnClear(t *testing.T) {
	r := New()
	var count atomic.Int32
	id := r.SetInterval(10*time.Millisecond, func() { count.Add(1) })

	time.Sleep(55 * time.Millisecond)
	r.Clear(id)
	n := count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, count.Load())
}

func TestIDsAreMonotonicAndNeverReused(t *testing.T) {
	r := New()
	first := r.SetTimeout(time.Hour, func() {})
	second := r.SetTimeout(time.Hour, func() {})
	assert.Equal(t, ID(1), first)
	assert.Equal(t, ID(2), second)
	r.Clear(first)
	r.Clear(second)
}

func TestClearUnknownIDIsNoop(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Clear(ID(999)) })
}

// TestCrossAdapterCancel mirrors the spec's concrete scenario: adapter X
// creates a timer, adapter Y (a distinct caller sharing the same registry
// singleton, per spec §4.8) clears it before it elapses.
func TestCrossAdapterCancel(t *testing.T) {
	r := New() // the one process-wide Timer Registry every adapter shares

	var fired atomic.Bool
	adapterX := func() ID { return r.SetTimeout(1000*time.Millisecond, func() { fired.Store(true) }) }
	adapterY := func(id ID) { r.Clear(id) }

	id := adapterX()
	assert.Equal(t, ID(1), id)
	adapterY(id)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Equal(t, 0, r.Len())

	next := r.SetTimeout(time.Hour, func() {})
	assert.NotEqual(t, id, next)
	r.Clear(next)
}

func TestSetTimeoutClampsBelowMinDelay(t *testing.T) {
	r := New()
	start := time.Now()
	done := make(chan struct{})
	r.SetTimeout(0, func() { close(done) })

	select {
	case <-done:
		assert.GreaterOrEqual(t, time.Since(start), MinDelay)
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestSetIntervalClampsBelowMinDelay(t *testing.T) {
	r := New()
	var count atomic.Int32
	id := r.SetInterval(-time.Millisecond, func() { count.Add(1) })
	defer r.Clear(id)

	time.Sleep(MinDelay / 2)
	assert.Equal(t, int32(0), count.Load())
}

func TestClearIsIdempotent(t *testing.T) {
	r := New()
	id := r.SetTimeout(time.Hour, func() {})
	r.Clear(id)
	assert.NotPanics(t, func() { r.Clear(id) })
}
