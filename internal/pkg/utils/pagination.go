package utils

import (
	"net/http"
	"strconv"
)

const (
	// DefaultPageSize is used when page_size is missing or invalid
	DefaultPageSize = 20
	// MaxPageSize caps page_size
	MaxPageSize = 100
)

// Page is a 1-based page window over an ordered listing
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows before the page
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ParsePage reads page and page_size from the query string. Missing or
// invalid values fall back to the first page of DefaultPageSize rows.
func ParsePage(r *http.Request) Page {
	q := r.URL.Query()
	p := Page{
		Number: queryInt(q.Get("page"), 1),
		Size:   queryInt(q.Get("page_size"), DefaultPageSize),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func queryInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}
