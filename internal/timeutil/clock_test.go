package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	assert.False(t, c.Now().IsZero())

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}

func TestMockClock_AdvanceAndSet(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	c.Advance(150 * time.Millisecond)
	assert.Equal(t, base.Add(150*time.Millisecond), c.Now())
	assert.InDelta(t, 0.15, StepSeconds(base, c.Now()), 1e-9)

	c.Set(base)
	assert.Equal(t, base, c.Now())
}

func TestMockTicker(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(base)

	tk := c.NewTicker(100 * time.Millisecond)
	require.Equal(t, 1, c.TickerCount())

	c.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(50 * time.Millisecond)
	select {
	case got := <-tk.C():
		assert.Equal(t, base.Add(100*time.Millisecond), got)
	default:
		t.Fatal("ticker did not fire when due")
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestStepSeconds(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		prev, now time.Time
		want      float64
	}{
		{"one frame", base, base.Add(100 * time.Millisecond), 0.1},
		{"same instant", base, base, 0},
		{"clock went backwards", base, base.Add(-time.Second), 0},
		{"no previous update", time.Time{}, base, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StepSeconds(tt.prev, tt.now), 1e-9)
		})
	}
}
