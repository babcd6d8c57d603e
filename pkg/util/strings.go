package util

import "strconv"

// ParseFloatDefault parses s as a float64, falling back to def when s is
// empty or malformed. Query parameters use this so a bad value never 500s.
func ParseFloatDefault(s string, def float64) float64 {
    if s == "" {
        return def
    }
    v, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return def
    }
    return v
}
