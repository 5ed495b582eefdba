package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Target is the compatibility context supplied by the server being managed.
type Target struct {
	GameVersion string
	Loader      string
}

// Ready reports whether enough context is known to issue catalog requests.
func (t Target) Ready() bool {
	return t.GameVersion != ""
}

// Matches reports whether a version is compatible with the target. Empty
// target fields match anything.
func (t Target) Matches(v Version) bool {
	if t.GameVersion != "" && len(v.GameVersions) > 0 && !slices.Contains(v.GameVersions, t.GameVersion) {
		return false
	}
	if t.Loader != "" && len(v.Loaders) > 0 && !containsFold(v.Loaders, t.Loader) {
		return false
	}
	return true
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// Sort is the result ordering requested from a provider.
type Sort int

const (
	SortRelevance Sort = iota
	SortDownloads
	SortUpdated
	SortNewest
	SortName
)

// String returns the flag value for the sort order.
func (s Sort) String() string {
	switch s {
	case SortDownloads:
		return "downloads"
	case SortUpdated:
		return "updated"
	case SortNewest:
		return "newest"
	case SortName:
		return "name"
	default:
		return "relevance"
	}
}

// ParseSort parses a sort flag value.
func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relevance":
		return SortRelevance, nil
	case "downloads":
		return SortDownloads, nil
	case "updated":
		return SortUpdated, nil
	case "newest":
		return SortNewest, nil
	case "name":
		return SortName, nil
	default:
		return SortRelevance, fmt.Errorf("unknown sort %q", s)
	}
}

// SearchRequest is one catalog query.
type SearchRequest struct {
	Provider Provider
	Kind     Kind
	Query    string
	Category string // provider-scoped category ID, empty for none
	Sort     Sort
	Offset   int
	Limit    int
	Target   Target
}

// Page is one page of search results.
type Page struct {
	Items  []Item
	Offset int
	Limit  int
	Total  int
}
