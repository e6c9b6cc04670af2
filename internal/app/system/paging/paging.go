// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size used when the client does not ask for one.
const DefaultLimit = 20

// MaxLimit caps client-requested page sizes.
const MaxLimit = 100

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Parse reads ?page= and ?limit= from r, clamping bad or missing values
// to page 1 and DefaultLimit, and limits above MaxLimit to MaxLimit.
func Parse(r *http.Request) Params {
	return Params{
		Page:  atoiMin(query.Get(r, "page"), 1, 1),
		Limit: clamp(atoiMin(query.Get(r, "limit"), DefaultLimit, 1), MaxLimit),
	}
}

// Skip is the number of documents before this page.
func (p Params) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// Page is the JSON envelope for a list response.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	HasNext bool  `json:"hasNext"`
}

// NewPage wraps items with paging metadata. A nil slice is sent as [].
func NewPage[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Page:    p.Page,
		Limit:   p.Limit,
		HasNext: p.Skip()+int64(len(items)) < total,
	}
}

func atoiMin(s string, def, min int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min {
		return def
	}
	return n
}

func clamp(n, max int) int {
	if n > max {
		return max
	}
	return n
}
