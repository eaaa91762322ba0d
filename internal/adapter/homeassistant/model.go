package homeassistant

import (
	"encoding/json"
)

const (
	SERVICE_GENERATE_PDF = "generate_pdf"
	SERVICE_LIST_PDFS    = "list_pdfs"
	SERVICE_DELETE_PDF   = "delete_pdf"

	WS_TYPE_AUTH_REQUIRED   = "auth_required"
	WS_TYPE_AUTH            = "auth"
	WS_TYPE_AUTH_OK         = "auth_ok"
	WS_TYPE_AUTH_INVALID    = "auth_invalid"
	WS_TYPE_RESULT          = "result"
	WS_TYPE_EVENT           = "event"
	WS_TYPE_SUBSCRIBE       = "subscribe_events"
	WS_TYPE_FLOOR_REGISTRY  = "config/floor_registry/list"
	WS_TYPE_AREA_REGISTRY   = "config/area_registry/list"
	WS_TYPE_DEVICE_REGISTRY = "config/device_registry/list"
	WS_TYPE_ENTITY_REGISTRY = "config/entity_registry/list"
)

// REST

type entityState struct {
	EntityId   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func (s entityState) friendlyName() string {
	if name, ok := s.Attributes["friendly_name"].(string); ok {
		return name
	}
	return ""
}

type generateServiceData struct {
	EntityIds      []string `json:"entity_ids"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	Filename       string   `json:"filename,omitempty"`
	FilenamePrefix string   `json:"filename_prefix,omitempty"`
}

type deleteServiceData struct {
	Filename string `json:"filename"`
}

type listServiceResponse struct {
	ServiceResponse struct {
		PdfFiles []string `json:"pdf_files"`
	} `json:"service_response"`
}

type apiMessage struct {
	Message string `json:"message"`
}

// Websocket

type wsMessage struct {
	Id          int             `json:"id,omitempty"`
	Type        string          `json:"type"`
	AccessToken string          `json:"access_token,omitempty"`
	EventType   string          `json:"event_type,omitempty"`
	Success     *bool           `json:"success,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *wsError        `json:"error,omitempty"`
	Event       *wsEvent        `json:"event,omitempty"`
	HAVersion   string          `json:"ha_version,omitempty"`
	Message     string          `json:"message,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wsEvent struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}
