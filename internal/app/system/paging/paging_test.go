package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url       string
		page, lim int
	}{
		{"/x", 1, DefaultLimit},
		{"/x?page=3&limit=10", 3, 10},
		{"/x?page=0&limit=-5", 1, DefaultLimit},
		{"/x?page=abc", 1, DefaultLimit},
		{"/x?limit=5000", 1, MaxLimit},
	}
	for _, tt := range tests {
		p := Parse(httptest.NewRequest("GET", tt.url, nil))
		if p.Page != tt.page || p.Limit != tt.lim {
			t.Errorf("Parse(%s) = %+v, want page=%d limit=%d", tt.url, p, tt.page, tt.lim)
		}
	}
}

func TestSkip(t *testing.T) {
	if got := (Params{Page: 3, Limit: 20}).Skip(); got != 40 {
		t.Errorf("Skip: got %d, want 40", got)
	}
	if got := (Params{Page: 0, Limit: 20}).Skip(); got != 0 {
		t.Errorf("Skip(page 0): got %d, want 0", got)
	}
}

func TestNewPage(t *testing.T) {
	p := Params{Page: 2, Limit: 2}
	pg := NewPage([]int{3, 4}, 5, p)
	if !pg.HasNext {
		t.Error("expected HasNext with 5 total and 4 seen")
	}
	last := NewPage([]int{5}, 5, Params{Page: 3, Limit: 2})
	if last.HasNext {
		t.Error("expected no next page on the last page")
	}
	empty := NewPage[int](nil, 0, p)
	if empty.Items == nil {
		t.Error("expected non-nil Items for JSON []")
	}
}
