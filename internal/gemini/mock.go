package gemini

import (
	"fmt"
	"regexp"
	"strings"
)

var questionNumber = regexp.MustCompile(`^\d+\.\s*`)

func mockAnswer(question string) Result {
	topic := mockTopic(question)
	return Result{
		Kind:        KindOK,
		Answer:      fmt.Sprintf("**%s**\n\nNo answer generator is configured. Set `GEMINI_API_KEY` to generate answers.", topic),
		SearchQuery: topic,
		Placeholder: true,
	}
}

func mockComplete() Result {
	return Result{
		Kind:        KindOK,
		Answer:      "No answer generator is configured. Set `GEMINI_API_KEY` to chat about your questions.",
		Placeholder: true,
	}
}

// mockTopic is the first line of the question without its number, cut to eight words.
func mockTopic(question string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(question), "\n")
	line = questionNumber.ReplaceAllString(line, "")
	words := strings.Fields(line)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}
