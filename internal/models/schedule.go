package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	MinutesPerDay  = 24 * 60
	DefaultMinutes = 60
)

// ParseClock converts "HH:MM" or "HH:MM:SS" into minutes after midnight
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a "YYYY-MM-DD" date in UTC
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders the calendar date of t
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays shifts a "YYYY-MM-DD" date by n days
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(d.AddDate(0, 0, n)), nil
}

// Span returns the start minute and duration of a timed task.
// Tasks without an end (or with an end before the start) last DefaultMinutes.
// Durations spanning past midnight are capped to one day.
func (t Task) Span() (start, duration int, ok bool) {
	if !t.IsTimed() {
		return 0, 0, false
	}
	start, err := ParseClock(*t.DueTime)
	if err != nil {
		return 0, 0, false
	}
	duration = DefaultMinutes
	if t.EndTime != nil {
		end, err := ParseClock(*t.EndTime)
		if err == nil {
			days := 0
			if t.EndDate != nil && *t.EndDate != *t.DueDate {
				if from, err1 := ParseDate(*t.DueDate); err1 == nil {
					if to, err2 := ParseDate(*t.EndDate); err2 == nil {
						days = int(to.Sub(from).Hours() / 24)
					}
				}
			}
			if d := days*MinutesPerDay + end - start; d > 0 {
				duration = min(d, MinutesPerDay)
			}
		}
	}
	return start, duration, true
}

// TimedSchedule builds a schedule from a start minute and duration. The end
// is capped at midnight, which is written as 00:00 on the next day so Span
// gives the duration back unchanged.
func TimedSchedule(date string, start, duration int) Schedule {
	end, endDate := min(start+duration, MinutesPerDay), date
	if end == MinutesPerDay {
		if next, err := AddDays(date, 1); err == nil {
			end, endDate = 0, next
		} else {
			end = MinutesPerDay - 1
		}
	}
	return Schedule{
		DueDate: Ptr(date),
		DueTime: Ptr(FormatClock(start)),
		EndDate: Ptr(endDate),
		EndTime: Ptr(FormatClock(end)),
	}
}

// AllDaySchedule builds an all-day schedule on date
func AllDaySchedule(date string) Schedule {
	return Schedule{DueDate: Ptr(date), EndDate: Ptr(date)}
}
