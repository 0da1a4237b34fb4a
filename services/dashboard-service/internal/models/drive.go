package models

import (
	"encoding/json"
	"time"
)

// Drive is a scheduled vaccination drive from the drive service.
type Drive struct {
	ID          string
	VaccineName string
	// Date is the value exactly as the drive service sent it.
	Date string
	// ScheduledAt is the parsed Date; zero when Date could not be parsed.
	ScheduledAt    time.Time
	Grades         json.RawMessage
	AvailableDoses *int64
	IsExpired      bool
}

// Upcoming reports whether the drive is not expired and scheduled after now.
func (d Drive) Upcoming(now time.Time) bool {
	return !d.IsExpired && !d.ScheduledAt.IsZero() && d.ScheduledAt.After(now)
}
