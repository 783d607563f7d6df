package cache

import (
	"time"
)

// TimeUntilNext は now から見て次に訪れる loc の hour:minute までの期間を返します。
func TimeUntilNext(now time.Time, hour, minute int, loc *time.Location) time.Duration {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)

	// 既に過ぎている場合は翌日を使用
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
