package util

import "time"

// ICT is the exchange timezone (UTC+7). All calendar/day-boundary logic runs in it.
var ICT = time.FixedZone("Asia/Ho_Chi_Minh", 7*3600)

// DayFromEpoch converts epoch seconds to the ICT calendar day holding that instant,
// normalized to 00:00 ICT.
func DayFromEpoch(ts int64) time.Time {
    return DayOf(time.Unix(ts, 0))
}

// DayOf normalizes an instant to its 00:00 ICT calendar day.
func DayOf(t time.Time) time.Time {
    t = t.In(ICT)
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ICT)
}

// DayRange returns every ICT calendar day in [DayFromEpoch(startTs), DayFromEpoch(endTs)]
// inclusive, ascending.
func DayRange(startTs, endTs int64) []time.Time {
    start := DayFromEpoch(startTs)
    end := DayFromEpoch(endTs)
    if end.Before(start) {
        return nil
    }
    out := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
    for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
        out = append(out, d)
    }
    return out
}

// FormatICT renders a timestamp in the exchange timezone, second precision.
func FormatICT(t time.Time) string {
    return t.In(ICT).Format("2006-01-02 15:04:05")
}
