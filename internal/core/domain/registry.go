package domain

type FloorEntry struct {
	Id    string `json:"floor_id"`
	Name  string `json:"name"`
	Level *int   `json:"level,omitempty"`
}

type AreaEntry struct {
	Id      string `json:"area_id"`
	Name    string `json:"name"`
	FloorId string `json:"floor_id,omitempty"`
}

type DeviceEntry struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	NameByUser   string `json:"name_by_user,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	AreaId       string `json:"area_id,omitempty"`
}

type EntityEntry struct {
	EntityId string `json:"entity_id"`
	DeviceId string `json:"device_id,omitempty"`
	AreaId   string `json:"area_id,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// Registry is an indexed view over the host registries.
type Registry struct {
	Floors   map[string]FloorEntry
	Areas    map[string]AreaEntry
	Devices  map[string]DeviceEntry
	Entities map[string]EntityEntry
}

func NewRegistry(floors []FloorEntry, areas []AreaEntry, devices []DeviceEntry, entities []EntityEntry) *Registry {
	r := &Registry{
		Floors:   make(map[string]FloorEntry, len(floors)),
		Areas:    make(map[string]AreaEntry, len(areas)),
		Devices:  make(map[string]DeviceEntry, len(devices)),
		Entities: make(map[string]EntityEntry, len(entities)),
	}
	for _, f := range floors {
		r.Floors[f.Id] = f
	}
	for _, a := range areas {
		r.Areas[a.Id] = a
	}
	for _, d := range devices {
		r.Devices[d.Id] = d
	}
	for _, e := range entities {
		r.Entities[e.EntityId] = e
	}
	return r
}

// Location is the resolved placement of a user record.
type Location struct {
	Building string
	Street   string
	Device   *DeviceInfo
}

func UnassignedLocation() Location {
	return Location{
		Building: LOCATION_UNASSIGNED,
		Street:   LOCATION_UNASSIGNED,
	}
}
