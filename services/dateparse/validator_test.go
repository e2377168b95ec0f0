package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateAgainstSlot(t *testing.T) {
	p := testParser(t)
	today := date(t, p, 2025, time.November, 3) // Monday

	t.Run("matching weekday passes", func(t *testing.T) {
		friday := date(t, p, 2025, time.November, 14)
		ok, reason := p.validateAgainstSlotAt(friday, "Friday 3-4pm", today)
		require.True(t, ok)
		require.Empty(t, reason)
	})

	t.Run("past date fails regardless of slot", func(t *testing.T) {
		for _, slot := range []string{"Friday 3-4pm", "Saturday 3-4pm", "whenever"} {
			past := date(t, p, 2025, time.October, 31)
			ok, reason := p.validateAgainstSlotAt(past, slot, today)
			require.False(t, ok)
			require.Equal(t, "Date is in the past. Please choose a future date.", reason)
		}
	})

	t.Run("weekday mismatch names both days", func(t *testing.T) {
		saturday := date(t, p, 2025, time.November, 15)
		ok, reason := p.validateAgainstSlotAt(saturday, "Friday 3-4pm", today)
		require.False(t, ok)
		require.Equal(t, "Date is Saturday but timeslot is Friday. Please choose a Friday.", reason)
	})

	t.Run("slot without a weekday has nothing to check", func(t *testing.T) {
		d := date(t, p, 2025, time.November, 15)
		ok, reason := p.validateAgainstSlotAt(d, "3-4pm", today)
		require.True(t, ok)
		require.Empty(t, reason)
	})

	t.Run("today passes", func(t *testing.T) {
		ok, _ := p.validateAgainstSlotAt(today, "Monday 5-6pm", today)
		require.True(t, ok)
	})
}

func TestSlotWeekday(t *testing.T) {
	wd, ok := SlotWeekday("Saturday 3-4pm")
	require.True(t, ok)
	require.Equal(t, time.Saturday, wd)

	_, ok = SlotWeekday("afternoon session")
	require.False(t, ok)
}

func TestToReadable(t *testing.T) {
	p := testParser(t)
	require.Equal(t, "Saturday, 15th November 2025", ToReadable(date(t, p, 2025, time.November, 15)))
	require.Equal(t, "Monday, 3rd November 2025", ToReadable(date(t, p, 2025, time.November, 3)))
	require.Equal(t, "Tuesday, 11th November 2025", ToReadable(date(t, p, 2025, time.November, 11)))
	require.Equal(t, "Friday, 21st November 2025", ToReadable(date(t, p, 2025, time.November, 21)))
	require.Equal(t, "Saturday, 22nd November 2025", ToReadable(date(t, p, 2025, time.November, 22)))
}
