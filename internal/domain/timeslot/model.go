package timeslot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekday is an ISO weekday, Monday=1 through Sunday=7
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// AllDays lists every weekday
var AllDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether d is in 1..7
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return time.Weekday(int(d) % 7).String()
}

// ISOWeekday returns the ISO weekday of t in its own location
func ISOWeekday(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// Clock is a time of day as an offset from midnight
type Clock time.Duration

const (
	// DayStart is the earliest representable time of day
	DayStart Clock = 0
	// DayEnd is the latest representable time of day
	DayEnd Clock = Clock(24*time.Hour - time.Nanosecond)
)

// NewClock builds a time of day from its parts
func NewClock(hour, minute, second int) Clock {
	return Clock(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// ClockOf returns the time of day of t in its own location
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute(), t.Second()) + Clock(t.Nanosecond())
}

// ParseClock parses "15:04", "15:04:05" and "15:04:05.999999"
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (c Clock) String() string {
	d := time.Duration(c)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ns := d % time.Second
	if ns == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", ns), "0")
	return fmt.Sprintf("%02d:%02d:%02d.%s", h, m, s, frac)
}

// MarshalJSON encodes the clock as a time-of-day string
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a time-of-day string
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeRecurrence is a weekly recurring window
type TimeRecurrence struct {
	ID    int64     `json:"id,omitempty"`
	Days  []Weekday `json:"days" validate:"required,min=1,dive,gte=1,lte=7"`
	Start Clock     `json:"start"`
	End   Clock     `json:"end"`
}

// AllDay returns a recurrence spanning the whole of every given day
func AllDay(days ...Weekday) TimeRecurrence {
	return TimeRecurrence{Days: days, Start: DayStart, End: DayEnd}
}

// Covers reports whether t, seen in loc, falls on one of the days and
// within [Start, End] inclusive.
func (r TimeRecurrence) Covers(t time.Time, loc *time.Location) bool {
	if loc != nil {
		t = t.In(loc)
	}
	day := ISOWeekday(t)
	found := false
	for _, d := range r.Days {
		if d == day {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	c := ClockOf(t)
	return r.Start <= c && c <= r.End
}

// Timeslot is a named set of weekly recurrences owned by a user
type Timeslot struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	Name        string           `json:"name" validate:"required,max=40"`
	Recurrences []TimeRecurrence `json:"time_recurrences" validate:"dive"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DefaultName is the name of the timeslot created for every new user
const DefaultName = "All the time"

// AllTheTime builds the default timeslot covering every moment of the week
func AllTheTime(userID int64) *Timeslot {
	return &Timeslot{
		UserID:      userID,
		Name:        DefaultName,
		Recurrences: []TimeRecurrence{AllDay(AllDays...)},
	}
}

// Covers reports whether any recurrence covers t. An empty timeslot covers nothing.
func (ts *Timeslot) Covers(t time.Time, loc *time.Location) bool {
	for _, r := range ts.Recurrences {
		if r.Covers(t, loc) {
			return true
		}
	}
	return false
}
