package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// String renders the clock as zero-padded 24-hour HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// ClockFromMinutes builds a clock from minutes since midnight.
func ClockFromMinutes(m int) Clock {
	return Clock{Hour: m / 60, Minute: m % 60}
}

// ParseClock parses an HH:MM string.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("invalid clock %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in clock %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in clock %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// TimeRange is a start and end time within a single day.
type TimeRange struct {
	Start Clock
	End   Clock
}

// Span renders the range as "HH:MM - HH:MM".
func (r TimeRange) Span() string {
	return Span(r.Start, r.End)
}

// String renders the range in the compact "HH:MM-HH:MM" form it is parsed from.
func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// ParseTimeRange parses an "HH:MM-HH:MM" string.
func ParseTimeRange(s string) (TimeRange, error) {
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return TimeRange{}, fmt.Errorf("invalid time range %q: expected HH:MM-HH:MM", s)
	}
	a, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	b, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	if b.Minutes() < a.Minutes() {
		return TimeRange{}, fmt.Errorf("invalid time range %q: ends before it starts", s)
	}
	return TimeRange{Start: a, End: b}, nil
}

// Span renders two clocks as a schedule span.
func Span(from, to Clock) string {
	return from.String() + " - " + to.String()
}

// ExamEvent is a scheduled examination.
type ExamEvent struct {
	Date   time.Time
	Time   TimeRange
	Course string // raw course field, e.g. "ICS 3106: OR"
	Venue  string
}

const courseSeparator = ": "

// CourseLabel returns the human-readable part of the course field, the text
// after the first ": ".
func (e ExamEvent) CourseLabel() string {
	if _, label, ok := strings.Cut(e.Course, courseSeparator); ok {
		return label
	}
	return e.Course
}

// CourseCode returns the part of the course field before the first ": ".
func (e ExamEvent) CourseCode() string {
	code, _, _ := strings.Cut(e.Course, courseSeparator)
	return code
}

// SortExams orders exams by date, keeping the input order for same-day exams.
func SortExams(exams []ExamEvent) {
	sort.SliceStable(exams, func(i, j int) bool {
		return DayOf(exams[i].Date).Before(DayOf(exams[j].Date))
	})
}

// DayOf truncates t to its calendar date, taken in t's own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ScheduleEntry is one time-blocked activity in a daily itinerary.
type ScheduleEntry struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
}
