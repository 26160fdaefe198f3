package extract

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/conorfennell/studyplan/internal/domain"
)

const (
	referenceMarker    = "o "
	referenceSeparator = "\nExam references: "
)

var (
	numberedQuestion = regexp.MustCompile(`^\d+\.\s`)
	questionHeader   = regexp.MustCompile(`(?i)^question\s+\d+`)
	// Banner lines printed at the top of exam papers.
	boilerplate = regexp.MustCompile(`(?i)^(faculty\b|school of\b|department of\b|(bachelor|master|doctor)\s+of\b|degree\s*(programme|program|:)|university\s+examinations?\b|(examination|exam)\s+session\b|end of semester\b|date\s*:|time\s*:|instructions\b)`)
)

var (
	complexityWords = []string{
		"explain", "describe", "analyze", "evaluate", "compare", "contrast",
		"design", "draw", "formally", "convert", "express",
	}
	easyWords = []string{"define", "list"}
)

// ParseFile reads a file from the given path and extracts all questions.
func ParseFile(path string) ([]domain.Question, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads everything from r and extracts all questions.
func Parse(r io.Reader) ([]domain.Question, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Extract(string(b)), nil
}

// Extract splits raw exam-paper text into questions, tagging each with an
// estimated difficulty. Lines that do not belong to a question are dropped.
func Extract(text string) []domain.Question {
	var questions []domain.Question
	var current string
	var references []string
	difficulty := domain.Medium
	inQuestion := false

	finishQuestion := func() {
		body := strings.TrimSpace(current)
		if body == "" {
			return
		}
		if len(references) > 0 {
			body += referenceSeparator + strings.Join(references, ", ")
		}
		questions = append(questions, domain.Question{Text: body, Difficulty: difficulty})
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case numberedQuestion.MatchString(line):
			finishQuestion()
			current = line
			difficulty = EstimateDifficulty(line)
			inQuestion = true
			references = nil
		case questionHeader.MatchString(line):
			inQuestion = true
		case boilerplate.MatchString(line):
			inQuestion = false
		case !inQuestion || line == "":
			// outside a question, or blank
		case strings.HasPrefix(line, referenceMarker):
			references = append(references, strings.TrimSpace(line[1:]))
		default:
			if current == "" {
				current = line
				difficulty = EstimateDifficulty(line)
			} else {
				current += " " + line
			}
		}
	}

	finishQuestion() // Finish the very last question in the text

	return questions
}

// EstimateDifficulty grades a question from its opening line. Complexity
// verbs win over the easy words.
func EstimateDifficulty(line string) domain.Difficulty {
	lower := strings.ToLower(line)
	if containsAny(lower, complexityWords) {
		return domain.Hard
	}
	if containsAny(lower, easyWords) {
		return domain.Easy
	}
	return domain.Medium
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
