package domain

import (
	"net/url"
	"time"
)

// Difficulty is the estimated difficulty tier of an extracted question.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Question is a single question pulled out of an exam paper.
type Question struct {
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
}

// QAPair is a question together with its generated answer.
// Answer holds markdown; it is rendered to HTML at the edges.
type QAPair struct {
	ID          string     `json:"id,omitempty"`
	Question    string     `json:"question" validate:"required"`
	Answer      string     `json:"answer"`
	Difficulty  Difficulty `json:"difficulty"`
	SearchQuery string     `json:"searchQuery,omitempty"`
}

const videoSearchURL = "https://www.youtube.com/results?search_query="

// SearchURL returns a video search link for the pair, or "" when the pair
// has no search query.
func (p QAPair) SearchURL() string {
	if p.SearchQuery == "" {
		return ""
	}
	return videoSearchURL + url.QueryEscape(p.SearchQuery)
}

// QASet is a named, ordered collection of Q&A pairs.
type QASet struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Pairs     []QAPair  `json:"pairs,omitempty"`
	PairCount int       `json:"pairCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CachedAnswer is a previously generated answer, keyed by question hash.
type CachedAnswer struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	SearchQuery string `json:"searchQuery"`
}
