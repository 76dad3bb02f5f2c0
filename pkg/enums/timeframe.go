package enums

import "fmt"

// Timeframe maps to the leaderboard_timeframe_enum enum in Postgres.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeAllTime Timeframe = "alltime"
)

// Timeframes lists every leaderboard window in canonical order. Contribution
// code iterates this slice so all four buckets stay in sync.
var Timeframes = []Timeframe{
	TimeframeDaily,
	TimeframeWeekly,
	TimeframeMonthly,
	TimeframeAllTime,
}

// IsValid reports whether the value matches the canonical timeframe enum.
func (t Timeframe) IsValid() bool {
	for _, candidate := range Timeframes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTimeframe converts raw input into Timeframe.
func ParseTimeframe(value string) (Timeframe, error) {
	for _, candidate := range Timeframes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeframe %q", value)
}
