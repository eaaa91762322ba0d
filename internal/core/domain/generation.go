package domain

import (
	"fmt"
	"time"
)

const DATE_LAYOUT = "2006-01-02"

// DateRange is an inclusive range of calendar dates. Both ends are midnight in the panel location.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// TotalDays is the inclusive day count. Dates are compared in UTC so DST shifts do not lose a day.
func (r DateRange) TotalDays() int {
	start := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

func (r DateRange) StartDate() string {
	return r.Start.Format(DATE_LAYOUT)
}

func (r DateRange) EndDate() string {
	return r.End.Format(DATE_LAYOUT)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.StartDate(), r.EndDate())
}

type PresetKind string

const (
	PRESET_SINGLE_DAY  PresetKind = "single_day"
	PRESET_LAST_N_DAYS PresetKind = "last_n_days"
	PRESET_THIS_MONTH  PresetKind = "this_month"
	PRESET_THIS_YEAR   PresetKind = "this_year"
)

type Preset struct {
	Kind PresetKind `json:"kind"`
	Days int        `json:"days,omitempty"`
}

func LastNDays(n int) Preset {
	return Preset{Kind: PRESET_LAST_N_DAYS, Days: n}
}

// GenerationRequest is the outbound message to the generation service.
// Id only tags logs and history rows, completion events do not carry it.
type GenerationRequest struct {
	Id             string    `json:"id"`
	EntityIds      []string  `json:"entity_ids"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Filename       string    `json:"filename,omitempty"`
	FilenamePrefix string    `json:"filename_prefix,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type CompletionEvent struct {
	Success   bool   `json:"success"`
	Filename  string `json:"filename,omitempty"`
	FileCount int    `json:"file_count,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary is the operator facing description of the outcome.
func (e CompletionEvent) Summary() string {
	if !e.Success {
		return fmt.Sprintf("Error: %s", e.Error)
	}
	if e.FileCount > 1 {
		return fmt.Sprintf("%d PDFs Generated", e.FileCount)
	}
	return fmt.Sprintf("PDF Generated: %s", e.Filename)
}

type StatusState string

const (
	STATUS_IDLE    StatusState = "idle"
	STATUS_LOADING StatusState = "loading"
	STATUS_SUCCESS StatusState = "success"
	STATUS_ERROR   StatusState = "error"
)

type PanelStatus struct {
	State   StatusState `json:"state"`
	Message string      `json:"message,omitempty"`
}

type HistoryEntry struct {
	Id           string     `json:"id"`
	EntityIds    []string   `json:"entity_ids"`
	StartDate    string     `json:"start_date"`
	EndDate      string     `json:"end_date"`
	Filename     string     `json:"filename,omitempty"`
	Prefix       string     `json:"filename_prefix,omitempty"`
	DispatchedAt time.Time  `json:"dispatched_at"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Detail       string     `json:"detail,omitempty"`
}
