package service

import (
	"github.com/berfenger/receiptpanel/internal/core/domain"
)

// RegistryResolver walks entity -> device -> area -> floor.
// A nil registry resolves everything to the unassigned location.
type RegistryResolver struct {
	Registry *domain.Registry
}

func (r RegistryResolver) Available() bool {
	return r.Registry != nil
}

// Resolve returns the location of the first entity with a registry link.
func (r RegistryResolver) Resolve(entities []domain.RawEntity) domain.Location {
	for _, e := range entities {
		if loc, ok := r.ResolveEntity(e); ok {
			return loc
		}
	}
	return domain.UnassignedLocation()
}

func (r RegistryResolver) ResolveEntity(e domain.RawEntity) (domain.Location, bool) {
	loc := domain.UnassignedLocation()
	if r.Registry == nil {
		return loc, false
	}

	deviceId, areaId := e.DeviceID, e.AreaID
	if entry, ok := r.Registry.Entities[e.ID]; ok {
		if entry.DeviceId != "" {
			deviceId = entry.DeviceId
		}
		if entry.AreaId != "" {
			areaId = entry.AreaId
		}
	}

	found := false
	if dev, ok := r.Registry.Devices[deviceId]; ok && deviceId != "" {
		found = true
		name := dev.NameByUser
		if name == "" {
			name = dev.Name
		}
		loc.Device = &domain.DeviceInfo{
			Id:           dev.Id,
			Name:         name,
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
		}
		// the entity area overrides the device area
		if areaId == "" {
			areaId = dev.AreaId
		}
	}

	if area, ok := r.Registry.Areas[areaId]; ok && areaId != "" {
		found = true
		if area.Name != "" {
			loc.Building = area.Name
		}
		if floor, ok := r.Registry.Floors[area.FloorId]; ok && area.FloorId != "" && floor.Name != "" {
			loc.Street = floor.Name
		}
	}
	return loc, found
}
