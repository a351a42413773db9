// Package schedule holds the time arithmetic shared by conflict checking and
// slot availability: half-open intervals and the fixed daily slot grid.
package schedule

import (
	"fmt"
	"iter"
	"time"
)

// Interval is a half-open time range [Start, End). An interval ending exactly
// when another begins does not overlap it, so back-to-back sessions are legal.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Validate() error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return fmt.Errorf("interval bounds must be set")
	}
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("interval start %s must be before end %s", iv.Start, iv.End)
	}
	return nil
}

// Overlaps reports whether two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Clinic operating hours and slot width. Hours that are not a whole multiple
// of the slot width lose the remainder; no short trailing slot is produced.
const (
	OpeningHour  = 9
	ClosingHour  = 18
	SlotDuration = time.Hour
)

// Slots yields the candidate slots for one clinic day, skipping any that
// overlap an interval in busy. The sequence is recomputed on every range, so
// callers always see the grid against the busy set they passed in.
func Slots(day time.Time, loc *time.Location, busy []Interval) iter.Seq[Interval] {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	open := time.Date(y, m, d, OpeningHour, 0, 0, 0, loc)
	close := time.Date(y, m, d, ClosingHour, 0, 0, 0, loc)

	return func(yield func(Interval) bool) {
		for start := open; !start.Add(SlotDuration).After(close); start = start.Add(SlotDuration) {
			slot := Interval{Start: start, End: start.Add(SlotDuration)}
			if overlapsAny(slot, busy) {
				continue
			}
			if !yield(slot) {
				return
			}
		}
	}
}

func overlapsAny(slot Interval, busy []Interval) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}
