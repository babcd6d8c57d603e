package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestDayOfCrossesMidnightICT(t *testing.T) {
    // 18:00 UTC is already the next calendar day in ICT (UTC+7)
    utc := time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
    got := DayOf(utc)
    if got.Format("2006-01-02") != "2026-01-02" {
        t.Fatalf("unexpected day %v", got)
    }
    if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
        t.Fatalf("not normalized to midnight: %v", got)
    }
}

func TestDayRangeInclusive(t *testing.T) {
    start := time.Date(2026, 1, 5, 3, 0, 0, 0, ICT).Unix()
    end := time.Date(2026, 1, 7, 22, 0, 0, 0, ICT).Unix()
    days := DayRange(start, end)
    if len(days) != 3 {
        t.Fatalf("expected 3 days, got %d", len(days))
    }
    if days[0].Format("2006-01-02") != "2026-01-05" || days[2].Format("2006-01-02") != "2026-01-07" {
        t.Fatalf("unexpected bounds %v .. %v", days[0], days[2])
    }
}

func TestDayRangeEmptyWhenReversed(t *testing.T) {
    if got := DayRange(200000, 100000); got != nil {
        t.Fatalf("expected nil, got %v", got)
    }
}

func TestFormatICT(t *testing.T) {
    utc := time.Date(2026, 1, 1, 18, 30, 0, 0, time.UTC)
    if got := FormatICT(utc); got != "2026-01-02 01:30:00" {
        t.Fatalf("unexpected format %q", got)
    }
}