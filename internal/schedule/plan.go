// Package schedule generates the daily posting plan and fires its
// slots. A plan is a sorted list of (post kind, time-of-day) slots
// drawn fresh at startup; the dispatcher polls the clock and invokes
// the posting action when a slot's minute arrives, at most once per
// slot per day.
package schedule

import (
	"fmt"
	"math/rand"
	"sort"
)

// PostKind tags a slot with the kind of post it should produce.
type PostKind string

const (
	KindText  PostKind = "text"
	KindImage PostKind = "image"
	// KindAuto lets the daily counter choose between text and image at
	// fire time. Used by the fixed-time (non-random) schedule mode.
	KindAuto PostKind = "auto"
)

// Slot is one scheduled posting time. TimeOfDay is zero-padded "HH:MM"
// local time, so lexicographic order equals chronological order.
type Slot struct {
	Kind      PostKind
	TimeOfDay string
}

// hourWeight returns the sampling weight for an hour of the day:
// 0 for the quiet hours [2,7) which are never scheduled, 3 for peak
// engagement hours, 1 for everything else.
func hourWeight(h int) int {
	switch {
	case h >= 2 && h < 7:
		return 0
	case (h >= 9 && h <= 14) || (h >= 17 && h <= 21):
		return 3
	default:
		return 1
	}
}

// randomTime draws one "HH:MM" time of day. When weighted is false the
// hour is uniform over [8,22]; when true it is drawn from the
// hourWeight distribution over all 24 hours. Minutes are uniform.
func randomTime(rng *rand.Rand, weighted bool) string {
	var hour int
	if !weighted {
		hour = 8 + rng.Intn(15) // [8,22]
	} else {
		total := 0
		for h := 0; h < 24; h++ {
			total += hourWeight(h)
		}
		pick := rng.Intn(total)
		for h := 0; h < 24; h++ {
			pick -= hourWeight(h)
			if pick < 0 {
				hour = h
				break
			}
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, rng.Intn(60))
}

// BuildDailyPlan generates textCount text slots and imageCount image
// slots from the same time distribution and returns them sorted
// ascending by time of day. Two slots may land on the same minute; both
// fire independently when due.
func BuildDailyPlan(rng *rand.Rand, textCount, imageCount int, weighted bool) []Slot {
	plan := make([]Slot, 0, textCount+imageCount)
	for i := 0; i < textCount; i++ {
		plan = append(plan, Slot{Kind: KindText, TimeOfDay: randomTime(rng, weighted)})
	}
	for i := 0; i < imageCount; i++ {
		plan = append(plan, Slot{Kind: KindImage, TimeOfDay: randomTime(rng, weighted)})
	}

	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].TimeOfDay < plan[j].TimeOfDay
	})
	return plan
}

// FixedPlan returns a single auto-kind slot at the configured time, for
// deployments that want one predictable post per day instead of the
// randomized plan.
func FixedPlan(postTime string) []Slot {
	return []Slot{{Kind: KindAuto, TimeOfDay: postTime}}
}
