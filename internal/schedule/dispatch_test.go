package schedule

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherFiresSlotOnce(t *testing.T) {
	plan := []Slot{{Kind: KindText, TimeOfDay: "09:30"}}
	d := NewDispatcher(nil, plan, time.Minute)

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	d.now = func() time.Time { return now }

	var fired []PostKind
	action := func(ctx context.Context, kind PostKind) bool {
		fired = append(fired, kind)
		return true
	}

	d.Tick(context.Background(), action)
	d.Tick(context.Background(), action) // same minute, must not refire
	if len(fired) != 1 || fired[0] != KindText {
		t.Fatalf("fired = %v, want one text firing", fired)
	}

	now = now.Add(time.Minute)
	d.Tick(context.Background(), action)
	if len(fired) != 1 {
		t.Errorf("slot refired after its minute passed: %v", fired)
	}
}

func TestDispatcherSkipsOffMinutes(t *testing.T) {
	plan := []Slot{{Kind: KindImage, TimeOfDay: "14:00"}}
	d := NewDispatcher(nil, plan, time.Minute)

	now := time.Date(2026, 3, 14, 13, 59, 0, 0, time.Local)
	d.now = func() time.Time { return now }

	called := 0
	d.Tick(context.Background(), func(ctx context.Context, kind PostKind) bool {
		called++
		return true
	})
	if called != 0 {
		t.Errorf("slot fired at the wrong minute")
	}
}

func TestDispatcherResetsAtMidnight(t *testing.T) {
	plan := []Slot{{Kind: KindText, TimeOfDay: "09:30"}}
	d := NewDispatcher(nil, plan, time.Minute)

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	d.now = func() time.Time { return now }

	called := 0
	action := func(ctx context.Context, kind PostKind) bool {
		called++
		return true
	}

	d.Tick(context.Background(), action)
	if called != 1 {
		t.Fatalf("first day firing count = %d, want 1", called)
	}

	// Next day, same minute: the slot is eligible again.
	now = now.AddDate(0, 0, 1)
	d.Tick(context.Background(), action)
	if called != 2 {
		t.Errorf("slot did not refire the next day, count = %d", called)
	}
}

func TestDispatcherMarksFiredOnFailure(t *testing.T) {
	plan := []Slot{{Kind: KindText, TimeOfDay: "09:30"}}
	d := NewDispatcher(nil, plan, time.Minute)

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	d.now = func() time.Time { return now }

	called := 0
	action := func(ctx context.Context, kind PostKind) bool {
		called++
		return false // posting failed
	}

	d.Tick(context.Background(), action)
	d.Tick(context.Background(), action)
	if called != 1 {
		t.Errorf("failed slot retried within the same day, count = %d", called)
	}
}
