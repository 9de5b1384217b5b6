// Package pagination splits ordered listings into fixed-size, 1-based pages.
//
// Everything here is pure: the page size is always passed in by the caller.
package pagination

import (
	"strconv"
	"strings"
)

// DefaultSize is the page size used when a caller passes a non-positive size.
const DefaultSize = 10

// Page describes one page of an ordered listing.
type Page struct {
	Number         int  `json:"number"`
	Size           int  `json:"size"`
	TotalItems     int  `json:"total_items"`
	NumPages       int  `json:"num_pages"`
	HasNext        bool `json:"has_next"`
	HasPrevious    bool `json:"has_previous"`
	NextNumber     int  `json:"next_number,omitempty"`
	PreviousNumber int  `json:"previous_number,omitempty"`
	// Offset is the zero-based index of the first item on the page.
	Offset int `json:"offset"`
	// StartIndex and EndIndex are 1-based and inclusive; both are 0 on an empty listing.
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`
}

// ParseNumber reads a requested page number from a raw query value.
// Missing or non-numeric input means the first page.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// New builds the page metadata for total items, clamping requested into range.
func New(total, requested, size int) Page {
	if size <= 0 {
		size = DefaultSize
	}
	if total < 0 {
		total = 0
	}

	numPages := (total + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}

	number := requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	p := Page{
		Number:      number,
		Size:        size,
		TotalItems:  total,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
		Offset:      (number - 1) * size,
	}
	if p.HasNext {
		p.NextNumber = number + 1
	}
	if p.HasPrevious {
		p.PreviousNumber = number - 1
	}
	if total > 0 {
		p.StartIndex = p.Offset + 1
		p.EndIndex = min(p.Offset+size, total)
	}
	return p
}

// Numbers lists every page number, for rendering a paginator.
func (p Page) Numbers() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Slice returns the requested page of items together with its metadata.
func Slice[T any](items []T, raw string, size int) ([]T, Page) {
	p := New(len(items), ParseNumber(raw), size)
	if p.TotalItems == 0 {
		return []T{}, p
	}
	return items[p.Offset:p.EndIndex], p
}
