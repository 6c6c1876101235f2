package shared

import (
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is a normalised page request.
type Page struct {
	Page    int
	PerPage int
}

// ParsePage reads page and per_page query values. Missing or invalid values
// fall back to page 1 and DefaultPerPage; per_page is capped at MaxPerPage.
func ParsePage(page, perPage string) Page {
	p, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil || p <= 0 {
		p = 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(perPage))
	if err != nil || n <= 0 {
		n = DefaultPerPage
	}
	if n > MaxPerPage {
		n = MaxPerPage
	}
	return Page{Page: p, PerPage: n}
}
