package domain

import "math"

const (
	// DefaultPerPage is used when a listing request omits per_page.
	DefaultPerPage = 10
	// MaxPerPage caps per_page on listing requests.
	MaxPerPage = 100
	// MaxPage caps page so the row offset fits a 32-bit integer.
	MaxPage = math.MaxInt32 / MaxPerPage
)

// PostQuery selects a page of stored posts.
type PostQuery struct {
	Page        int     `json:"page"`
	PerPage     int     `json:"per_page"`
	CategoryIDs []int64 `json:"category_ids,omitempty"`
}

// Normalize clamps page and per-page into their valid ranges.
func (q PostQuery) Normalize() PostQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

// Offset returns the row offset of the first item on the page.
func (q PostQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// PostPage is one page of stored posts plus totals for the whole selection.
type PostPage struct {
	Items      []*Post `json:"items"`
	TotalCount int     `json:"total_count"`
	TotalPages int     `json:"total_pages"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
}

// NewPostPage builds a page and derives TotalPages from the total count.
func NewPostPage(items []*Post, total int, q PostQuery) *PostPage {
	if items == nil {
		items = []*Post{}
	}
	pages := 0
	if q.PerPage > 0 {
		pages = (total + q.PerPage - 1) / q.PerPage
	}
	return &PostPage{
		Items:      items,
		TotalCount: total,
		TotalPages: pages,
		Page:       q.Page,
		PerPage:    q.PerPage,
	}
}
