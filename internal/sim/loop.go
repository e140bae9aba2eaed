// Package sim drives the fixed-rate simulation loop. One goroutine ticks
// every live character's active effect set; all apply/remove work is
// synchronous and completes within the step.
package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/galeforge/tdrpg/internal/world"
)

// Loop ticks the world at a fixed rate.
type Loop struct {
	arena    *world.Arena
	interval time.Duration
}

// NewLoop creates a loop ticking tickRateHz times per second.
func NewLoop(arena *world.Arena, tickRateHz int) *Loop {
	if tickRateHz <= 0 {
		tickRateHz = 10
	}
	return &Loop{
		arena:    arena,
		interval: time.Second / time.Duration(tickRateHz),
	}
}

// Interval returns the tick interval.
func (l *Loop) Interval() time.Duration { return l.interval }

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	slog.Info("simulation loop started", "interval", l.interval)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation loop stopped")
			return nil
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			for _, c := range l.arena.Characters() {
				c.Effects().Tick(delta)
			}
		}
	}
}
