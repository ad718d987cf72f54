package models

import "fmt"

// SearchType narrows a catalog search to a field.
type SearchType string

const (
	SearchGeneral  SearchType = "general"
	SearchInTitle  SearchType = "intitle"
	SearchInAuthor SearchType = "inauthor"
)

// SearchTypes lists the types in display order.
var SearchTypes = []SearchType{SearchGeneral, SearchInTitle, SearchInAuthor}

// Label is the human name for the search type.
func (t SearchType) Label() string {
	switch t {
	case SearchGeneral:
		return "All"
	case SearchInTitle:
		return "Title"
	case SearchInAuthor:
		return "Author"
	default:
		return string(t)
	}
}

// Next cycles to the following search type.
func (t SearchType) Next() SearchType {
	for i, st := range SearchTypes {
		if st == t {
			return SearchTypes[(i+1)%len(SearchTypes)]
		}
	}
	return SearchGeneral
}

// ParseSearchType accepts a type name or its label.
func ParseSearchType(s string) (SearchType, error) {
	for _, st := range SearchTypes {
		if s == string(st) || s == st.Label() {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown search type %q", s)
}

// SearchRequest is a public catalog query.
type SearchRequest struct {
	Type  SearchType `json:"term" validate:"required,oneof=general intitle inauthor"`
	Query string     `json:"search" validate:"required,notblank"`
}
