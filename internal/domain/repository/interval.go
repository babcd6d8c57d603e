package repository

// Intraday bar resolutions served by the price store.
const (
	Interval1m  = "1m"
	Interval5m  = "5m"
	Interval15m = "15m"
)

// IsValidInterval returns true if iv is a supported intraday interval.
func IsValidInterval(iv string) bool {
	switch iv {
	case Interval1m, Interval5m, Interval15m:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default intraday interval.
func DefaultInterval() string { return Interval5m }

// NormalizeInterval converts a raw string to a valid interval (or default).
func NormalizeInterval(s string) string {
	if s == "" {
		return DefaultInterval()
	}
	if IsValidInterval(s) {
		return s
	}
	return DefaultInterval()
}
