package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"
)

var (
	ErrInvalidPreset = errors.New("invalid date preset")
	ErrInvalidDate   = errors.New("invalid date")
)

// DateRangeState holds the active range. Until a range is set the current one is today.
type DateRangeState struct {
	Location *time.Location
	current  *domain.DateRange
}

func NewDateRangeState(loc *time.Location) *DateRangeState {
	if loc == nil {
		loc = time.Local
	}
	return &DateRangeState{Location: loc}
}

func (s *DateRangeState) midnight(t time.Time) time.Time {
	t = t.In(s.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.Location)
}

// SetExplicit parses both dates. An inverted range collapses to the single day end.
func (s *DateRangeState) SetExplicit(start, end string) (domain.DateRange, error) {
	startT, err := time.ParseInLocation(domain.DATE_LAYOUT, start, s.Location)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: start %q: %v", ErrInvalidDate, start, err)
	}
	endT, err := time.ParseInLocation(domain.DATE_LAYOUT, end, s.Location)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: end %q: %v", ErrInvalidDate, end, err)
	}
	if startT.After(endT) {
		startT = endT
	}
	r := domain.DateRange{Start: startT, End: endT}
	s.current = &r
	return r, nil
}

// SetPreset overwrites both endpoints from a preset evaluated at now.
func (s *DateRangeState) SetPreset(p domain.Preset, now time.Time) (domain.DateRange, error) {
	r, err := s.PresetRange(p, now)
	if err != nil {
		return r, err
	}
	s.current = &r
	return r, nil
}

func (s *DateRangeState) PresetRange(p domain.Preset, now time.Time) (domain.DateRange, error) {
	today := s.midnight(now)
	switch p.Kind {
	case domain.PRESET_SINGLE_DAY:
		return domain.DateRange{Start: today, End: today}, nil
	case domain.PRESET_LAST_N_DAYS:
		if p.Days < 1 {
			return domain.DateRange{}, fmt.Errorf("%w: last_n_days needs days >= 1", ErrInvalidPreset)
		}
		return domain.DateRange{Start: today.AddDate(0, 0, -(p.Days - 1)), End: today}, nil
	case domain.PRESET_THIS_MONTH:
		return domain.DateRange{Start: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.Location), End: today}, nil
	case domain.PRESET_THIS_YEAR:
		return domain.DateRange{Start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, s.Location), End: today}, nil
	}
	return domain.DateRange{}, fmt.Errorf("%w: %q", ErrInvalidPreset, p.Kind)
}

func (s *DateRangeState) Current(now time.Time) domain.DateRange {
	if s.current != nil {
		return *s.current
	}
	today := s.midnight(now)
	return domain.DateRange{Start: today, End: today}
}

func (s *DateRangeState) IsSet() bool {
	return s.current != nil
}
