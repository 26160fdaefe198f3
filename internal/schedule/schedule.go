package schedule

import (
	"fmt"
	"time"

	"github.com/conorfennell/studyplan/internal/domain"
)

const (
	sessionMinutes   = 150 // one study session, 2.5 hours
	breakMinutes     = 15
	maxExamsToCover  = 3
	lateExamHour     = 10 // exams starting after this hour leave room for a morning revision block
	reviewHours      = 2
	eveningStudyEnds = 18
)

var (
	dayStart = domain.Clock{Hour: 7, Minute: 30}
	allDone  = domain.ScheduleEntry{Time: "All day", Activity: "All exams completed. Great job!"}
	windDown = domain.ScheduleEntry{Time: "21:00", Activity: "Wind down and prepare for bed"}
	dinner   = domain.ScheduleEntry{Time: "18:00 - 19:00", Activity: "Dinner and relaxation"}
)

var morning = []domain.ScheduleEntry{
	{Time: "06:00 - 06:30", Activity: "Wake up and morning routine"},
	{Time: "06:30 - 07:00", Activity: "Light exercise and shower"},
	{Time: "07:00 - 07:30", Activity: "Breakfast"},
}

// Build generates the itinerary for the day of ref. exams must be sorted by
// date; the first exam on or after ref decides which kind of day it is.
func Build(ref time.Time, exams []domain.ExamEvent) []domain.ScheduleEntry {
	today := domain.DayOf(ref)

	next, ok := nextExam(today, exams)
	if !ok {
		return []domain.ScheduleEntry{allDone}
	}

	schedule := append([]domain.ScheduleEntry(nil), morning...)

	switch daysBetween(today, next.Date) {
	case 0:
		schedule = append(schedule, examDay(today, next, exams)...)
	case 1:
		schedule = append(schedule, dayBefore(next)...)
	default:
		schedule = append(schedule, studyDay(today, exams)...)
	}

	return append(schedule, windDown)
}

func examDay(today time.Time, exam domain.ExamEvent, exams []domain.ExamEvent) []domain.ScheduleEntry {
	course := exam.CourseLabel()
	start, end := exam.Time.Start, exam.Time.End

	var entries []domain.ScheduleEntry
	if start.Hour > lateExamHour {
		entries = append(entries,
			domain.ScheduleEntry{Time: "07:30 - 10:00", Activity: "Final revision for " + course},
			domain.ScheduleEntry{Time: "10:00 - 10:15", Activity: "Break"},
			domain.ScheduleEntry{Time: "10:15 - 12:00", Activity: "Continue revision for " + course},
			domain.ScheduleEntry{Time: "12:00 - 12:45", Activity: "Lunch and relaxation"},
		)
	}

	entries = append(entries,
		domain.ScheduleEntry{Time: domain.Span(reviewStart(start), start), Activity: "Last-minute review and preparation for " + course},
		domain.ScheduleEntry{Time: exam.Time.Span(), Activity: course + " Exam"},
	)

	upcoming, ok := firstAfter(today, exams)
	if !ok {
		return entries
	}

	nextCourse := upcoming.CourseLabel()
	studyFrom := studyStart(end)
	return append(entries,
		domain.ScheduleEntry{Time: domain.Span(end, studyFrom), Activity: "Rest and refreshment after exam"},
		domain.ScheduleEntry{Time: domain.Span(studyFrom, domain.Clock{Hour: eveningStudyEnds}), Activity: "Study session for next exam: " + nextCourse},
		dinner,
		domain.ScheduleEntry{Time: "19:00 - 20:00", Activity: "Continue studying " + nextCourse},
	)
}

func dayBefore(exam domain.ExamEvent) []domain.ScheduleEntry {
	course := exam.CourseLabel()
	return []domain.ScheduleEntry{
		{Time: "07:30 - 10:00", Activity: fmt.Sprintf("Intensive study for tomorrow's %s exam", course)},
		{Time: "10:00 - 10:15", Activity: "Break"},
		{Time: "10:15 - 12:30", Activity: "Continue studying " + course},
		{Time: "12:30 - 13:15", Activity: "Lunch break"},
		{Time: "13:15 - 15:30", Activity: "Review key concepts for " + course},
		{Time: "15:30 - 15:45", Activity: "Break"},
		{Time: "15:45 - 18:00", Activity: "Practice problems for " + course},
		dinner,
		{Time: "19:00 - 20:30", Activity: "Final review of weak areas in " + course},
	}
}

func studyDay(today time.Time, exams []domain.ExamEvent) []domain.ScheduleEntry {
	var entries []domain.ScheduleEntry
	covered := 0
	for _, exam := range exams {
		if covered == maxExamsToCover {
			break
		}
		if domain.DayOf(exam.Date).Before(today) {
			continue
		}

		start := dayStart.Minutes() + (sessionMinutes+breakMinutes)*covered
		end := start + sessionMinutes
		entries = append(entries,
			domain.ScheduleEntry{
				Time:     domain.Span(domain.ClockFromMinutes(start), domain.ClockFromMinutes(end)),
				Activity: "Study session for " + exam.CourseLabel(),
			},
			domain.ScheduleEntry{
				Time:     domain.Span(domain.ClockFromMinutes(end), domain.ClockFromMinutes(end+breakMinutes)),
				Activity: "Break",
			},
		)
		covered++
	}

	return append(entries,
		dinner,
		domain.ScheduleEntry{Time: "19:00 - 20:30", Activity: "Review and summarize today's studies"},
	)
}

// reviewStart is the top of the hour two hours before the exam. Exams
// starting before 02:00 get a review window clamped to midnight.
func reviewStart(start domain.Clock) domain.Clock {
	h := start.Hour - reviewHours
	if h < 0 {
		h = 0
	}
	return domain.Clock{Hour: h}
}

// studyStart is the top of the hour after the exam ends, clamped to 23:59.
func studyStart(end domain.Clock) domain.Clock {
	if end.Hour >= 23 {
		return domain.Clock{Hour: 23, Minute: 59}
	}
	return domain.Clock{Hour: end.Hour + 1}
}

func nextExam(today time.Time, exams []domain.ExamEvent) (domain.ExamEvent, bool) {
	for _, exam := range exams {
		if !domain.DayOf(exam.Date).Before(today) {
			return exam, true
		}
	}
	return domain.ExamEvent{}, false
}

func firstAfter(today time.Time, exams []domain.ExamEvent) (domain.ExamEvent, bool) {
	for _, exam := range exams {
		if domain.DayOf(exam.Date).After(today) {
			return exam, true
		}
	}
	return domain.ExamEvent{}, false
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(domain.DayOf(b).Sub(domain.DayOf(a)).Hours() / 24)
}
