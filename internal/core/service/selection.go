package service

import (
	"slices"

	"github.com/berfenger/receiptpanel/internal/core/domain"
)

// Selection is a set of base names that keeps insertion order.
type Selection struct {
	order []string
}

func (s *Selection) Contains(baseName string) bool {
	return slices.Contains(s.order, baseName)
}

// Toggle adds the base name if absent and removes it otherwise. It returns the new membership.
func (s *Selection) Toggle(baseName string) bool {
	if i := slices.Index(s.order, baseName); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
		return false
	}
	s.order = append(s.order, baseName)
	return true
}

// SelectAll adds every user of the view, in view order.
func (s *Selection) SelectAll(view []domain.UserRecord) {
	for _, u := range view {
		if !s.Contains(u.BaseName) {
			s.order = append(s.order, u.BaseName)
		}
	}
}

func (s *Selection) Clear() {
	s.order = nil
}

func (s *Selection) Len() int {
	return len(s.order)
}

func (s *Selection) Items() []string {
	return slices.Clone(s.order)
}
