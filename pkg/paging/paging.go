// Package paging provides the pagination envelope returned by every list and
// search endpoint, plus parsing of pagination parameters from HTTP requests.
package paging

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	// DefaultPageSize is used when pageSize is not specified.
	DefaultPageSize = 50
	// MaxPageSize is the upper bound for pageSize.
	MaxPageSize = 200
)

// Page is the read-only envelope wrapping one page of results.
type Page[T any] struct {
	PageIndex  int   `json:"pageIndex"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
	TotalHits  int64 `json:"totalHits"`
	Content    []T   `json:"content"`
}

// New builds a Page for the given window. totalPages is derived as
// ceil(totalHits/pageSize), clamped to zero or more.
func New[T any](pageIndex, pageSize int, totalHits int64, content []T) Page[T] {
	totalPages := 0
	if pageSize > 0 && totalHits > 0 {
		totalPages = int((totalHits + int64(pageSize) - 1) / int64(pageSize))
	}
	if content == nil {
		content = []T{}
	}
	return Page[T]{
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalHits:  totalHits,
		Content:    content,
	}
}

// Map converts a page of one element type into a page of another, preserving
// the window metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	content := make([]U, 0, len(p.Content))
	for _, item := range p.Content {
		content = append(content, fn(item))
	}
	return Page[U]{
		PageIndex:  p.PageIndex,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		TotalHits:  p.TotalHits,
		Content:    content,
	}
}

// Params holds validated pagination parameters.
type Params struct {
	PageIndex int
	PageSize  int
}

// InvalidPaginationError reports out-of-range pagination parameters.
type InvalidPaginationError struct {
	Param string
	Value int
}

func (e *InvalidPaginationError) Error() string {
	return fmt.Sprintf("invalid pagination parameter %s=%d", e.Param, e.Value)
}

// Validate checks the parameter ranges directly. pageSize must be positive
// and at most MaxPageSize; pageIndex must be zero or more.
func Validate(pageIndex, pageSize int) (Params, error) {
	if pageIndex < 0 {
		return Params{}, &InvalidPaginationError{Param: "pageIndex", Value: pageIndex}
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		return Params{}, &InvalidPaginationError{Param: "pageSize", Value: pageSize}
	}
	return Params{PageIndex: pageIndex, PageSize: pageSize}, nil
}

// ParseParams extracts pageIndex and pageSize from the request query string,
// applying defaults for missing values and rejecting invalid ones.
func ParseParams(r *http.Request) (Params, error) {
	q := r.URL.Query()

	pageIndex := 0
	if v := q.Get("pageIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, &InvalidPaginationError{Param: "pageIndex"}
		}
		pageIndex = n
	}

	pageSize := DefaultPageSize
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, &InvalidPaginationError{Param: "pageSize"}
		}
		pageSize = n
	}

	return Validate(pageIndex, pageSize)
}
