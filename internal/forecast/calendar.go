package forecast

import (
	"time"

	domrepo "GapCast/internal/domain/repository"
	"GapCast/pkg/util"
)

// SessionState is the trading-day phase at a wall-clock instant (ICT).
type SessionState string

const (
	SessionPreOpen   SessionState = "pre_open"
	SessionMorning   SessionState = "morning"
	SessionLunch     SessionState = "lunch"
	SessionAfternoon SessionState = "afternoon"
	SessionPostClose SessionState = "post_close"
	SessionClosed    SessionState = "closed"
)

// HOSE session boundaries, minutes from midnight ICT.
const (
	openMin      = 9 * 60
	lunchInMin   = 11*60 + 30
	lunchOutMin  = 13 * 60
	closeMin     = 15 * 60
)

// TradingCalendar decides session states and trading-day arithmetic. Holiday
// closures come from the injected provider; weekends are built in.
type TradingCalendar struct {
	holidays domrepo.Calendar
}

func NewTradingCalendar(holidays domrepo.Calendar) *TradingCalendar {
	return &TradingCalendar{holidays: holidays}
}

func (c *TradingCalendar) isClosedDay(d time.Time) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return true
	}
	return c.holidays != nil && c.holidays.IsHoliday(d)
}

// SessionStatus classifies now against the fixed HOSE boundaries
// (09:00 / 11:30 / 13:00 / 15:00 ICT).
func (c *TradingCalendar) SessionStatus(now time.Time) SessionState {
	now = now.In(util.ICT)
	if c.isClosedDay(now) {
		return SessionClosed
	}
	m := now.Hour()*60 + now.Minute()
	switch {
	case m < openMin:
		return SessionPreOpen
	case m < lunchInMin:
		return SessionMorning
	case m < lunchOutMin:
		return SessionLunch
	case m < closeMin:
		return SessionAfternoon
	default:
		return SessionPostClose
	}
}

// NextTradingDay advances past weekends and holidays.
func (c *TradingCalendar) NextTradingDay(d time.Time) time.Time {
	nxt := util.DayOf(d).AddDate(0, 0, 1)
	for c.isClosedDay(nxt) {
		nxt = nxt.AddDate(0, 0, 1)
	}
	return nxt
}

// PickTargetTradingDay returns today while any pre-close session phase is
// running, else the next trading day.
func (c *TradingCalendar) PickTargetTradingDay(now time.Time) time.Time {
	now = now.In(util.ICT)
	switch c.SessionStatus(now) {
	case SessionPreOpen, SessionMorning, SessionLunch, SessionAfternoon:
		return util.DayOf(now)
	}
	return c.NextTradingDay(now)
}

// NextTradingSession tells which session comes next and on which day.
func (c *TradingCalendar) NextTradingSession(now time.Time) (time.Time, string) {
	now = now.In(util.ICT)
	switch c.SessionStatus(now) {
	case SessionPreOpen:
		return util.DayOf(now), "AM"
	case SessionMorning, SessionLunch:
		return util.DayOf(now), "PM"
	default:
		return c.NextTradingDay(now), "AM"
	}
}

// HolidaySet is a Calendar backed by a fixed list of YYYY-MM-DD dates,
// typically loaded from configuration.
type HolidaySet map[string]struct{}

func NewHolidaySet(dates []string) HolidaySet {
	s := make(HolidaySet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

func (s HolidaySet) IsHoliday(d time.Time) bool {
	_, ok := s[d.In(util.ICT).Format("2006-01-02")]
	return ok
}

// SystemClock provides ICT wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().In(util.ICT) }
