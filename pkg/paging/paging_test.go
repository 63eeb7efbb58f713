package paging

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestNewTotalPages(t *testing.T) {
	tests := []struct {
		name      string
		pageSize  int
		totalHits int64
		want      int
	}{
		{"no hits", 10, 0, 0},
		{"exact multiple", 10, 30, 3},
		{"partial last page", 10, 31, 4},
		{"single hit", 10, 1, 1},
		{"hits below page size", 50, 7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := New[int](0, tt.pageSize, tt.totalHits, nil)
			if page.TotalPages != tt.want {
				t.Fatalf("TotalPages = %d, want %d", page.TotalPages, tt.want)
			}
		})
	}
}

func TestNewContentNeverNil(t *testing.T) {
	page := New[string](0, 10, 0, nil)
	if page.Content == nil {
		t.Fatal("Content is nil, want empty slice")
	}
}

func TestContentLengthInvariant(t *testing.T) {
	// content.length == min(pageSize, max(0, totalHits - pageIndex*pageSize))
	dataset := make([]int, 23)
	for i := range dataset {
		dataset[i] = i
	}

	pageSize := 10
	for pageIndex := 0; pageIndex < 4; pageIndex++ {
		offset := pageIndex * pageSize
		end := offset + pageSize
		if offset > len(dataset) {
			offset = len(dataset)
		}
		if end > len(dataset) {
			end = len(dataset)
		}
		page := New(pageIndex, pageSize, int64(len(dataset)), dataset[offset:end])

		want := len(dataset) - pageIndex*pageSize
		if want < 0 {
			want = 0
		}
		if want > pageSize {
			want = pageSize
		}
		if len(page.Content) != want {
			t.Fatalf("pageIndex %d: content length = %d, want %d", pageIndex, len(page.Content), want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		pageIndex int
		pageSize  int
		wantErr   bool
	}{
		{"valid", 0, 50, false},
		{"zero page size", 0, 0, true},
		{"negative page size", 0, -5, true},
		{"page size above max", 0, MaxPageSize + 1, true},
		{"negative page index", -1, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.pageIndex, tt.pageSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var invalid *InvalidPaginationError
				if !errors.As(err, &invalid) {
					t.Fatalf("Validate() error = %T, want *InvalidPaginationError", err)
				}
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Params
		wantErr bool
	}{
		{"defaults", "", Params{PageIndex: 0, PageSize: DefaultPageSize}, false},
		{"explicit values", "pageIndex=2&pageSize=25", Params{PageIndex: 2, PageSize: 25}, false},
		{"zero page size rejected", "pageSize=0", Params{}, true},
		{"negative page size rejected", "pageSize=-1", Params{}, true},
		{"non-numeric page size rejected", "pageSize=ten", Params{}, true},
		{"negative page index rejected", "pageIndex=-3", Params{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/?"+tt.query, nil)
			got, err := ParseParams(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("ParseParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMapPreservesWindow(t *testing.T) {
	page := New(1, 2, 5, []int{3, 4})
	mapped := Map(page, func(v int) string { return string(rune('a' + v)) })

	if mapped.PageIndex != 1 || mapped.PageSize != 2 || mapped.TotalHits != 5 || mapped.TotalPages != 3 {
		t.Fatalf("window metadata changed: %+v", mapped)
	}
	if len(mapped.Content) != 2 || mapped.Content[0] != "d" {
		t.Fatalf("mapped content = %v", mapped.Content)
	}
}
