package domain

const (
	ACTOR_ID_MASTER = "master"
	ACTOR_ID_PANEL  = "panel"
	ACTOR_ID_MQTT   = "mqtt"
)

type Lifecycle string

const (
	LIFECYCLE_UNINITIALIZED Lifecycle = "uninitialized"
	LIFECYCLE_INITIALIZING  Lifecycle = "initializing"
	LIFECYCLE_READY         Lifecycle = "ready"
)

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// Initialization

// InitializeRequest starts the first aggregation. It is a no-op once the panel is ready.
type InitializeRequest struct {
	PanelRequestMixIn
}

// HostConnectedEvent is emitted on every (re)connection to the host and forces a full re-aggregation.
type HostConnectedEvent struct {
	PanelRequestMixIn
}

type ReloadRequest struct {
	PanelRequestMixIn
}

type LifecycleResponse struct {
	ActorResponseMixIn
	Lifecycle Lifecycle
}

// Panel view

type GetPanelStateRequest struct {
	PanelRequestMixIn
}

type SearchRequest struct {
	PanelRequestMixIn
	Query    string
	Building string
	Street   string
}

type ToggleSelectionRequest struct {
	PanelRequestMixIn
	BaseName string
}

type SelectAllRequest struct {
	PanelRequestMixIn
}

type ClearSelectionRequest struct {
	PanelRequestMixIn
}

type SetDateRangeRequest struct {
	PanelRequestMixIn
	Start string
	End   string
}

type SetDatePresetRequest struct {
	PanelRequestMixIn
	Preset Preset
}

type Facets struct {
	Buildings []string `json:"buildings"`
	Streets   []string `json:"streets"`
}

type DateRangeView struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	TotalDays int    `json:"total_days"`
}

type PanelView struct {
	Lifecycle   Lifecycle     `json:"lifecycle"`
	Users       []UserRecord  `json:"users"`
	TotalUsers  int           `json:"total_users"`
	Query       string        `json:"query"`
	Building    string        `json:"building"`
	Street      string        `json:"street"`
	Facets      Facets        `json:"facets"`
	Selected    []string      `json:"selected"`
	DateRange   DateRangeView `json:"date_range"`
	CanGenerate bool          `json:"can_generate"`
	Status      PanelStatus   `json:"status"`
	Reports     []string      `json:"reports"`
}

type PanelStateResponse struct {
	ActorResponseMixIn
	View PanelView
}

type GetUsersRequest struct {
	PanelRequestMixIn
}

type GetUsersResponse struct {
	ActorResponseMixIn
	Users []UserRecord
}

type GetUserStatsRequest struct {
	PanelRequestMixIn
	BaseName string
}

type GetUserStatsResponse struct {
	ActorResponseMixIn
	Stats *UserStats
}

// Generation

type GenerateRequest struct {
	PanelRequestMixIn
	Filename       string
	FilenamePrefix string
}

type GenerateResponse struct {
	ActorResponseMixIn
	Request *GenerationRequest
}

type GetStatusRequest struct {
	PanelRequestMixIn
}

type GetStatusResponse struct {
	ActorResponseMixIn
	Status PanelStatus
}

// Reports

type ListReportsRequest struct {
	PanelRequestMixIn
}

type RefreshReportsRequest struct {
	PanelRequestMixIn
}

type ListReportsResponse struct {
	ActorResponseMixIn
	Files []string
}

type DeleteReportRequest struct {
	PanelRequestMixIn
	Filename string
}

type DeleteReportResponse struct {
	ActorResponseMixIn
	Files []string
}

type GetHistoryRequest struct {
	PanelRequestMixIn
	Limit int
}

type GetHistoryResponse struct {
	ActorResponseMixIn
	Entries []HistoryEntry
}

// EventStream model

// StatusUpdateEvent is published on the event stream on every status transition.
type StatusUpdateEvent struct {
	Status     PanelStatus
	LastReport string
	Users      int
}

// ensure interface compliance
var _ PanelRequest = (*GenerateRequest)(nil)
