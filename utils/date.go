package utils

import (
	"time"
)

// OrderDateKey is the per-day bucket used by the order number counter.
func OrderDateKey(date time.Time) string {
	return date.Format("20060102")
}

func FormatDate(date time.Time) string {
	return date.Format("2006-01-02")
}
