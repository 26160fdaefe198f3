package qa

import (
	"strings"

	"github.com/conorfennell/studyplan/internal/domain"
)

// DefaultPerPage is the number of pairs shown per page.
const DefaultPerPage = 12

// Filter keeps the pairs whose question or answer contains term, ignoring case.
// An empty term keeps everything.
func Filter(pairs []domain.QAPair, term string) []domain.QAPair {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return pairs
	}
	var out []domain.QAPair
	for _, p := range pairs {
		if strings.Contains(strings.ToLower(p.Question), term) ||
			strings.Contains(strings.ToLower(p.Answer), term) {
			out = append(out, p)
		}
	}
	return out
}

// Page is one page of pairs.
type Page struct {
	Items      []domain.QAPair `json:"items"`
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
}

// Paginate returns page (1-based) of pairs. The page number is clamped to the
// available range; perPage <= 0 means DefaultPerPage.
func Paginate(pairs []domain.QAPair, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(pairs)
	totalPages := (total + perPage - 1) / perPage

	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Items:      pairs[start:end],
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
