// Package paginate holds the list query shape shared by every resource.
package paginate

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var ErrInvalidSort = errors.New("invalid sort")

// Input is the list request accepted by every List use case.
type Input struct {
	Page   int    `json:"page" validate:"gte=0"`
	Limit  int    `json:"limit" validate:"gte=0,lte=100"`
	Search string `json:"search" validate:"max=200"`
	Sort   string `json:"sort" validate:"max=200"`
}

// Result is one page of documents.
type Result[T any] struct {
	Docs  []T   `json:"docs"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Normalize fills defaults for page and limit.
func (in Input) Normalize() Input {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = DefaultLimit
	}
	if in.Limit > MaxLimit {
		in.Limit = MaxLimit
	}
	in.Search = strings.TrimSpace(in.Search)
	in.Sort = strings.TrimSpace(in.Sort)
	return in
}

// Offset is the number of rows to skip for the current page.
func (in Input) Offset() uint64 {
	in = in.Normalize()
	return uint64((in.Page - 1) * in.Limit)
}

// OrderBy translates "field:asc,other:desc" into SQL order clauses using the
// allowed field-to-column map. An empty sort yields fallback.
func OrderBy(sort string, allowed map[string]string, fallback string) ([]string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return []string{fallback}, nil
	}
	var clauses []string
	for _, item := range strings.Split(sort, ",") {
		field, dir, _ := strings.Cut(strings.TrimSpace(item), ":")
		column, ok := allowed[field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidSort, field)
		}
		switch strings.ToLower(dir) {
		case "", "asc":
			clauses = append(clauses, column+" ASC")
		case "desc":
			clauses = append(clauses, column+" DESC")
		default:
			return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, dir)
		}
	}
	return clauses, nil
}

// FromQuery reads page, limit, search and sort from URL query parameters.
func FromQuery(q url.Values) (Input, error) {
	var in Input
	var err error
	if v := q.Get("page"); v != "" {
		if in.Page, err = strconv.Atoi(v); err != nil {
			return Input{}, fmt.Errorf("page must be a number")
		}
	}
	if v := q.Get("limit"); v != "" {
		if in.Limit, err = strconv.Atoi(v); err != nil {
			return Input{}, fmt.Errorf("limit must be a number")
		}
	}
	in.Search = q.Get("search")
	in.Sort = q.Get("sort")
	return in, nil
}
