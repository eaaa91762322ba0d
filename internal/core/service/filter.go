package service

import (
	"sort"
	"strings"

	"github.com/berfenger/receiptpanel/internal/core/domain"
)

const FACET_ALL = "all"

type UserFilter struct {
	Query    string
	Building string
	Street   string
}

// Apply narrows users to the ones matching the query and the facets. Order is preserved.
func (f UserFilter) Apply(users []domain.UserRecord) []domain.UserRecord {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.UserRecord, 0, len(users))
	for _, u := range users {
		if !facetMatches(f.Building, u.Building) || !facetMatches(f.Street, u.Street) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(u.BaseName), query) &&
			!strings.Contains(strings.ToLower(u.DisplayName), query) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func facetMatches(facet, value string) bool {
	return facet == "" || facet == FACET_ALL || facet == value
}

// FacetsOf lists the distinct building and street values, sorted.
func FacetsOf(users []domain.UserRecord) domain.Facets {
	buildings := map[string]struct{}{}
	streets := map[string]struct{}{}
	for _, u := range users {
		buildings[u.Building] = struct{}{}
		streets[u.Street] = struct{}{}
	}
	return domain.Facets{
		Buildings: sortedKeys(buildings),
		Streets:   sortedKeys(streets),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
