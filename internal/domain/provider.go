package domain

import (
	"sort"
	"time"
)

type Provider struct {
	ID             int64
	Name           string
	Specialty      string
	Address        string
	BaseHourlyRate int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ScheduleSlot is one recurring availability unit of a provider's weekly
// schedule. Times are minutes from local midnight. Slots are owned by the
// admin side and read-only here.
type ScheduleSlot struct {
	ID              int64
	ProviderID      int64
	DayOfWeek       time.Weekday
	StartMinute     int
	DurationMinutes int
	Active          bool
}

func (s ScheduleSlot) EndMinute() int {
	return s.StartMinute + s.DurationMinutes
}

// ScheduleCatalog holds a provider's full weekly schedule and answers
// per-day queries. Pure data, no I/O.
type ScheduleCatalog struct {
	slots []ScheduleSlot
}

func NewScheduleCatalog(slots []ScheduleSlot) *ScheduleCatalog {
	return &ScheduleCatalog{slots: slots}
}

// SlotsFor returns the active slots for one weekday, ascending by
// time-of-day. An empty result means the provider has no availability
// that day; that is not an error.
func (c *ScheduleCatalog) SlotsFor(day time.Weekday) []ScheduleSlot {
	out := make([]ScheduleSlot, 0)
	for _, s := range c.slots {
		if s.DayOfWeek == day && s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
	return out
}

// AvailableSlot is a schedule slot projected onto a concrete calendar
// date. Occupied slots are marked taken rather than hidden so the caller
// can render them as unavailable.
type AvailableSlot struct {
	SlotID          int64     `json:"slot_id"`
	Date            time.Time `json:"date"`
	StartMinute     int       `json:"start_minute"`
	DurationMinutes int       `json:"duration_minutes"`
	Taken           bool      `json:"taken"`
}
