package leaderboard

import (
	"time"

	"github.com/voynichlabs/voynich-backend/pkg/enums"
)

// allTimeEpoch is the single bucket date shared by every alltime entry.
var allTimeEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// BucketStart returns the bucket date for the given timeframe at the given
// instant. Buckets are anchored in UTC: daily at midnight, weekly on Sunday,
// monthly on the first of the month. Alltime entries share one fixed epoch.
func BucketStart(timeframe enums.Timeframe, now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch timeframe {
	case enums.TimeframeDaily:
		return midnight
	case enums.TimeframeWeekly:
		return midnight.AddDate(0, 0, -int(midnight.Weekday()))
	case enums.TimeframeMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case enums.TimeframeAllTime:
		return allTimeEpoch
	default:
		return midnight
	}
}
