package models

import "time"

// Ledger clock timestamps are milliseconds since the epoch.
func msToTime(ms uint64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms))
}
