package models

import (
	"fmt"
	"time"
)

// DisplayLayout is how history timestamps are shown to people
const DisplayLayout = "1/2/2006, 3:04:05 PM"

// DisplayTime formats the record's creation instant in loc.
// A nil loc means local time.
func (r HistoryRecord) DisplayTime(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return r.CreatedAt.In(loc).Format(DisplayLayout)
}

// Percent renders a percentage with exactly two decimals, e.g. 91.23%
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
