package forecast

import (
	"testing"
	"time"

	"GapCast/pkg/util"

	"github.com/stretchr/testify/require"
)

func ictTime(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, util.ICT)
}

func TestSessionStatusBoundaries(t *testing.T) {
	cal := NewTradingCalendar(nil)
	// 2026-03-04 is a Wednesday
	cases := []struct {
		hh, mm int
		want   SessionState
	}{
		{8, 59, SessionPreOpen},
		{9, 0, SessionMorning},
		{11, 29, SessionMorning},
		{11, 30, SessionLunch},
		{12, 59, SessionLunch},
		{13, 0, SessionAfternoon},
		{14, 59, SessionAfternoon},
		{15, 0, SessionPostClose},
		{23, 59, SessionPostClose},
	}
	for _, c := range cases {
		got := cal.SessionStatus(ictTime(2026, 3, 4, c.hh, c.mm))
		require.Equal(t, c.want, got, "at %02d:%02d", c.hh, c.mm)
	}
}

func TestSessionStatusClosedDays(t *testing.T) {
	hols := NewHolidaySet([]string{"2026-03-06"})
	cal := NewTradingCalendar(hols)

	// Saturday and Sunday
	require.Equal(t, SessionClosed, cal.SessionStatus(ictTime(2026, 3, 7, 10, 0)))
	require.Equal(t, SessionClosed, cal.SessionStatus(ictTime(2026, 3, 8, 10, 0)))
	// configured holiday (a Friday)
	require.Equal(t, SessionClosed, cal.SessionStatus(ictTime(2026, 3, 6, 10, 0)))
}

func TestNextTradingDaySkipsWeekendAndHoliday(t *testing.T) {
	// Friday 2026-03-06 is a holiday, so from Thursday the next trading day
	// is Monday.
	hols := NewHolidaySet([]string{"2026-03-06"})
	cal := NewTradingCalendar(hols)

	next := cal.NextTradingDay(ictTime(2026, 3, 5, 16, 0))
	require.Equal(t, "2026-03-09", next.Format("2006-01-02"))
}

func TestPickTargetTradingDay(t *testing.T) {
	cal := NewTradingCalendar(nil)

	// during any pre-close phase of a trading day the target is today
	require.Equal(t, "2026-03-04",
		cal.PickTargetTradingDay(ictTime(2026, 3, 4, 8, 0)).Format("2006-01-02"))
	require.Equal(t, "2026-03-04",
		cal.PickTargetTradingDay(ictTime(2026, 3, 4, 12, 0)).Format("2006-01-02"))
	// after close it rolls to the next trading day
	require.Equal(t, "2026-03-05",
		cal.PickTargetTradingDay(ictTime(2026, 3, 4, 15, 30)).Format("2006-01-02"))
	// Friday post-close rolls over the weekend
	require.Equal(t, "2026-03-09",
		cal.PickTargetTradingDay(ictTime(2026, 3, 6, 16, 0)).Format("2006-01-02"))
}

func TestNextTradingSession(t *testing.T) {
	cal := NewTradingCalendar(nil)

	day, sess := cal.NextTradingSession(ictTime(2026, 3, 4, 8, 0))
	require.Equal(t, "AM", sess)
	require.Equal(t, "2026-03-04", day.Format("2006-01-02"))

	day, sess = cal.NextTradingSession(ictTime(2026, 3, 4, 10, 0))
	require.Equal(t, "PM", sess)
	require.Equal(t, "2026-03-04", day.Format("2006-01-02"))

	day, sess = cal.NextTradingSession(ictTime(2026, 3, 4, 12, 0))
	require.Equal(t, "PM", sess)

	day, sess = cal.NextTradingSession(ictTime(2026, 3, 4, 16, 0))
	require.Equal(t, "AM", sess)
	require.Equal(t, "2026-03-05", day.Format("2006-01-02"))
}

func TestHolidaySetNormalizesZone(t *testing.T) {
	hols := NewHolidaySet([]string{"2026-01-01"})
	// 2025-12-31 18:00 UTC is already 2026-01-01 in ICT
	utc := time.Date(2025, 12, 31, 18, 0, 0, 0, time.UTC)
	require.True(t, hols.IsHoliday(utc))
}
