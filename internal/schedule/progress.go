package schedule

import (
	"math"
	"time"

	"github.com/conorfennell/studyplan/internal/domain"
)

// studyWindowDays is how many days of preparation each exam is given.
const studyWindowDays = 7

// ExamProgress is how far through its study window a single exam is.
type ExamProgress struct {
	Course  string `json:"course"`
	Percent int    `json:"percent"`
}

// Report summarises study progress across all exams.
type Report struct {
	Overall int            `json:"overall"`
	Exams   []ExamProgress `json:"exams"`
}

// Progress measures each exam against a fixed study window that ends on the
// exam date.
func Progress(ref time.Time, exams []domain.ExamEvent) Report {
	report := Report{Exams: make([]ExamProgress, 0, len(exams))}
	if len(exams) == 0 {
		return report
	}

	passedDays := 0
	for _, exam := range exams {
		elapsed := max(0, -DaysUntil(ref, exam)+studyWindowDays)
		passedDays += min(elapsed, studyWindowDays)
		report.Exams = append(report.Exams, ExamProgress{
			Course:  exam.CourseLabel(),
			Percent: min(100, percent(elapsed, studyWindowDays)),
		})
	}

	report.Overall = min(100, percent(passedDays, len(exams)*studyWindowDays))
	return report
}

// DaysUntil returns the number of calendar days from ref to the exam date;
// negative once the exam has passed.
func DaysUntil(ref time.Time, exam domain.ExamEvent) int {
	return daysBetween(ref, exam.Date)
}

func percent(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}
