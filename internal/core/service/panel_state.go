package service

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"
)

const (
	STATUS_MESSAGE_GENERATING = "Generating PDF..."
	STAT_MISSING_VALUE        = "-"
)

var ErrUnknownUser = errors.New("unknown user")

// PanelState is the whole mutable state of one panel. It is owned by a single actor.
type PanelState struct {
	Users      []domain.UserRecord
	Filter     UserFilter
	Selection  Selection
	DateRange  *DateRangeState
	Status     domain.PanelStatus
	Reports    []string
	LastReport string

	builder RequestBuilder
}

func NewPanelState(loc *time.Location, filenamePrefix string) *PanelState {
	return &PanelState{
		DateRange: NewDateRangeState(loc),
		Status:    domain.PanelStatus{State: domain.STATUS_IDLE},
		Reports:   []string{},
		builder:   RequestBuilder{FilenamePrefix: filenamePrefix, Location: loc},
	}
}

// SetUsers replaces the canonical list. The selection is kept.
func (s *PanelState) SetUsers(users []domain.UserRecord) {
	s.Users = users
}

func (s *PanelState) Filtered() []domain.UserRecord {
	return s.Filter.Apply(s.Users)
}

func (s *PanelState) SelectAllFiltered() {
	s.Selection.SelectAll(s.Filtered())
}

func (s *PanelState) User(baseName string) (domain.UserRecord, bool) {
	for _, u := range s.Users {
		if u.BaseName == baseName {
			return u, true
		}
	}
	return domain.UserRecord{}, false
}

// CanGenerate reports whether Build would succeed.
func (s *PanelState) CanGenerate() bool {
	for _, name := range s.Selection.Items() {
		if u, ok := s.User(name); ok && u.TotalEnergyEntity() != "" {
			return true
		}
	}
	return false
}

func (s *PanelState) BuildRequest(now time.Time, opts GenerateOptions) (domain.GenerationRequest, error) {
	return s.builder.Build(s.Selection.Items(), s.Users, s.DateRange.Current(now), now, opts)
}

func (s *PanelState) MarkDispatched() {
	s.Status = domain.PanelStatus{State: domain.STATUS_LOADING, Message: STATUS_MESSAGE_GENERATING}
}

func (s *PanelState) MarkDispatchFailed(err error) {
	s.Status = domain.PanelStatus{State: domain.STATUS_ERROR, Message: fmt.Sprintf("Error: %s", err)}
}

func (s *PanelState) ApplyCompletion(ev domain.CompletionEvent) {
	state := domain.STATUS_SUCCESS
	if !ev.Success {
		state = domain.STATUS_ERROR
	} else if ev.Filename != "" {
		s.LastReport = ev.Filename
	}
	s.Status = domain.PanelStatus{State: state, Message: ev.Summary()}
}

func (s *PanelState) SetReports(files []string) {
	if files == nil {
		files = []string{}
	}
	s.Reports = files
}

// RemoveReport drops a deleted file from the local listing.
func (s *PanelState) RemoveReport(filename string) {
	s.Reports = slices.DeleteFunc(s.Reports, func(f string) bool { return f == filename })
}

func (s *PanelState) View(lifecycle domain.Lifecycle, now time.Time) domain.PanelView {
	r := s.DateRange.Current(now)
	return domain.PanelView{
		Lifecycle:  lifecycle,
		Users:      s.Filtered(),
		TotalUsers: len(s.Users),
		Query:      s.Filter.Query,
		Building:   s.Filter.Building,
		Street:     s.Filter.Street,
		Facets:     FacetsOf(s.Users),
		Selected:   s.Selection.Items(),
		DateRange: domain.DateRangeView{
			Start:     r.StartDate(),
			End:       r.EndDate(),
			TotalDays: r.TotalDays(),
		},
		CanGenerate: s.CanGenerate(),
		Status:      s.Status,
		Reports:     slices.Clone(s.Reports),
	}
}

// UserStats renders the live value of every channel of a user, in vocabulary order.
func (s *PanelState) UserStats(baseName string, snapshot domain.Snapshot, vocabulary domain.Vocabulary) (*domain.UserStats, error) {
	u, ok := s.User(baseName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, baseName)
	}
	stats := &domain.UserStats{
		BaseName:    u.BaseName,
		DisplayName: u.DisplayName,
		Channels:    make([]domain.ChannelStat, 0, len(vocabulary)),
	}
	for _, ch := range vocabulary {
		stat := domain.ChannelStat{
			Type:     ch.Type,
			EntityId: u.Sensors[ch.Type],
			Value:    STAT_MISSING_VALUE,
			Unit:     ch.Unit,
			Icon:     ch.Icon,
		}
		if stat.EntityId != "" {
			if e, ok := snapshot.Lookup(stat.EntityId); ok {
				stat.Value = FormatChannelValue(e.State, ch.Decimals)
			}
		}
		stats.Channels = append(stats.Channels, stat)
	}
	return stats, nil
}

// FormatChannelValue rounds numeric states. Other states (unavailable, unknown) pass through.
func FormatChannelValue(state string, decimals uint) string {
	if state == "" {
		return STAT_MISSING_VALUE
	}
	v, err := strconv.ParseFloat(state, 64)
	if err != nil {
		return state
	}
	return strconv.FormatFloat(v, 'f', int(decimals), 64)
}
