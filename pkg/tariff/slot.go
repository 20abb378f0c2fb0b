package tariff

import (
	"fmt"
	"time"
)

// SlotsPerDay is the number of half-hour slots in the controller's daily cycle.
const SlotsPerDay = 48

// Date is a calendar date with no time or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days later. Month and year boundaries roll over.
func (d Date) AddDays(n int) Date {
	// noon UTC avoids any DST edge, only the date part is used
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// SlotKey identifies a half-hour bucket on a particular date.
type SlotKey struct {
	Date   Date
	Hour   int
	Minute int // 0 or 30
}

// KeyFor returns the bucket containing t, evaluated in t's own location.
func KeyFor(t time.Time) SlotKey {
	return SlotKey{
		Date:   DateOf(t),
		Hour:   t.Hour(),
		Minute: halfHour(t.Minute()),
	}
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s %02d:%02d", k.Date, k.Hour, k.Minute)
}

func halfHour(minute int) int {
	if minute < 30 {
		return 0
	}
	return 30
}

// slotTime returns the hour and minute of the i-th slot of the day.
func slotTime(i int) (int, int) {
	return i / 2, (i % 2) * 30
}
