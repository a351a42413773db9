package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 10, hour, min, 0, 0, time.UTC)
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 0), at(10, 0)}, true},
		{"partial overlap", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 30), at(10, 30)}, true},
		{"contained", Interval{at(9, 0), at(12, 0)}, Interval{at(10, 0), at(11, 0)}, true},
		{"touching end-to-start", Interval{at(9, 0), at(10, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"touching start-to-end", Interval{at(10, 0), at(11, 0)}, Interval{at(9, 0), at(10, 0)}, false},
		{"disjoint", Interval{at(9, 0), at(10, 0)}, Interval{at(14, 0), at(15, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestIntervalValidate(t *testing.T) {
	require.NoError(t, Interval{at(9, 0), at(10, 0)}.Validate())
	require.Error(t, Interval{at(10, 0), at(9, 0)}.Validate())
	require.Error(t, Interval{at(10, 0), at(10, 0)}.Validate(), "zero-width interval is invalid")
	require.Error(t, Interval{}.Validate())
}

func collect(seq func(yield func(Interval) bool)) []Interval {
	var out []Interval
	seq(func(iv Interval) bool {
		out = append(out, iv)
		return true
	})
	return out
}

func TestSlotsFullDay(t *testing.T) {
	slots := collect(Slots(at(0, 0), time.UTC, nil))

	require.Len(t, slots, 9)
	assert.Equal(t, at(9, 0), slots[0].Start)
	assert.Equal(t, at(18, 0), slots[8].End)
	for _, s := range slots {
		assert.Equal(t, time.Hour, s.Duration())
	}
}

func TestSlotsSkipsBusyInterval(t *testing.T) {
	busy := []Interval{{at(10, 0), at(11, 0)}}
	slots := collect(Slots(at(0, 0), time.UTC, busy))

	require.Len(t, slots, 8)
	for _, s := range slots {
		assert.False(t, s.Overlaps(busy[0]), "slot %v overlaps booking", s)
	}
}

func TestSlotsPartialOverlapRemovesBothSlots(t *testing.T) {
	// A booking straddling two grid slots knocks both out.
	busy := []Interval{{at(10, 30), at(11, 30)}}
	slots := collect(Slots(at(0, 0), time.UTC, busy))

	require.Len(t, slots, 7)
	for _, s := range slots {
		assert.NotEqual(t, at(10, 0), s.Start)
		assert.NotEqual(t, at(11, 0), s.Start)
	}
}

func TestSlotsRestartable(t *testing.T) {
	seq := Slots(at(0, 0), time.UTC, nil)

	first := collect(seq)
	second := collect(seq)
	assert.Equal(t, first, second)
}

func TestSlotsStopsWhenYieldReturnsFalse(t *testing.T) {
	n := 0
	Slots(at(0, 0), time.UTC, nil)(func(Interval) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}
