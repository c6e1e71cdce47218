package services

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Page is a resolved listing window.
type Page struct {
	Skip  int
	Limit int
}

// NewPage clamps a 1-based page number to at least 1 and a page size to
// [1, MaxPerPage], then converts them to a 0-based skip. A skip that would
// overflow saturates at math.MaxInt, which every store treats as past the end.
func NewPage(page, perPage int) Page {
	page = max(page, 1)
	perPage = min(max(perPage, 1), MaxPerPage)
	if page-1 > math.MaxInt/perPage {
		return Page{Skip: math.MaxInt, Limit: perPage}
	}
	return Page{Skip: (page - 1) * perPage, Limit: perPage}
}

// ParsePage coerces raw query values. Absent or non-numeric values fall back
// to DefaultPage and DefaultPerPage before clamping.
func ParsePage(page, perPage string) Page {
	return NewPage(atoiOr(page, DefaultPage), atoiOr(perPage, DefaultPerPage))
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
