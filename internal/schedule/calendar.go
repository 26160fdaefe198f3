package schedule

import (
	"time"

	"github.com/conorfennell/studyplan/internal/domain"
)

// MonthView describes the calendar month containing a reference date.
type MonthView struct {
	Year         int            `json:"year"`
	Month        time.Month     `json:"month"`
	DaysInMonth  int            `json:"daysInMonth"`
	FirstWeekday time.Weekday   `json:"firstWeekday"`
	ExamDays     map[int]string `json:"examDays"` // day of month -> course label
}

// Month lays out the month of ref and marks the days that have an exam.
func Month(ref time.Time, exams []domain.ExamEvent) MonthView {
	year, month, _ := ref.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	view := MonthView{
		Year:         year,
		Month:        month,
		DaysInMonth:  first.AddDate(0, 1, -1).Day(),
		FirstWeekday: first.Weekday(),
		ExamDays:     make(map[int]string),
	}

	for _, exam := range exams {
		y, m, d := exam.Date.Date()
		if y == year && m == month {
			view.ExamDays[d] = exam.CourseLabel()
		}
	}
	return view
}
