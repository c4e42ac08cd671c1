package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Action produces a post of the given kind. It reports whether the
// post succeeded; the dispatcher logs the outcome but a slot is marked
// fired either way; a failed post does not retry until tomorrow.
type Action func(ctx context.Context, kind PostKind) bool

// Dispatcher drives a daily plan. Each poll tick it fires every slot
// whose time of day matches the current local minute and has not fired
// today, and resets all fired flags when the local date changes.
//
// Ticks are not re-entrant: a long-running action delays the next tick.
// That is deliberate: the process is a single cooperative loop and
// posting twice concurrently would race the daily counters.
type Dispatcher struct {
	logger       *slog.Logger
	plan         []Slot
	pollInterval time.Duration

	fired    []bool
	firedDay string

	now func() time.Time // replaced in tests
}

// NewDispatcher creates a dispatcher over a plan. pollInterval <= 0
// defaults to one minute.
func NewDispatcher(logger *slog.Logger, plan []Slot, pollInterval time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &Dispatcher{
		logger:       logger,
		plan:         plan,
		pollInterval: pollInterval,
		fired:        make([]bool, len(plan)),
		now:          time.Now,
	}
}

// Tick fires every due slot exactly once. Exposed separately from Run
// so the surrounding loop can interleave other periodic work (the reply
// cycle) between ticks.
func (d *Dispatcher) Tick(ctx context.Context, action Action) {
	now := d.now()
	day := now.Format("2006-01-02")
	if day != d.firedDay {
		// Local midnight passed; every slot becomes eligible again.
		d.firedDay = day
		for i := range d.fired {
			d.fired[i] = false
		}
	}

	clock := now.Format("15:04")
	for i, slot := range d.plan {
		if d.fired[i] || slot.TimeOfDay != clock {
			continue
		}
		d.fired[i] = true
		d.logger.Info("scheduled slot due", "kind", slot.Kind, "time", slot.TimeOfDay)
		if ok := action(ctx, slot.Kind); !ok {
			d.logger.Warn("scheduled post failed", "kind", slot.Kind, "time", slot.TimeOfDay)
		}
	}
}

// Run polls until ctx is cancelled. The sleep between ticks is the sole
// suspension point; cancellation is observed at that boundary.
func (d *Dispatcher) Run(ctx context.Context, action Action) {
	d.logger.Info("dispatch loop started",
		"slots", len(d.plan),
		"poll_interval", d.pollInterval,
	)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatch loop stopped")
			return
		case <-ticker.C:
			d.Tick(ctx, action)
		}
	}
}
