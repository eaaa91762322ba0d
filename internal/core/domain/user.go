package domain

import "strings"

const LOCATION_UNASSIGNED = "Unassigned"

type DeviceInfo struct {
	Id           string `json:"id" yaml:"id"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`
}

// DeviceMatcher is one allow-list entry. An empty model accepts any model of the manufacturer.
type DeviceMatcher struct {
	Manufacturer string `mapstructure:"manufacturer" json:"manufacturer"`
	Model        string `mapstructure:"model" json:"model,omitempty"`
}

func (m DeviceMatcher) Matches(info *DeviceInfo) bool {
	if info == nil {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(m.Manufacturer), strings.TrimSpace(info.Manufacturer)) {
		return false
	}
	return m.Model == "" || strings.EqualFold(strings.TrimSpace(m.Model), strings.TrimSpace(info.Model))
}

type UserRecord struct {
	BaseName      string                `json:"base_name" yaml:"base_name"`
	DisplayName   string                `json:"display_name" yaml:"display_name"`
	Sensors       map[SensorType]string `json:"sensors" yaml:"sensors"`
	ControlEntity string                `json:"control_entity,omitempty" yaml:"control_entity,omitempty"`
	Device        *DeviceInfo           `json:"device,omitempty" yaml:"device,omitempty"`
	Building      string                `json:"building" yaml:"building"`
	Street        string                `json:"street" yaml:"street"`
}

func (u UserRecord) HasSensor(t SensorType) bool {
	_, ok := u.Sensors[t]
	return ok
}

func (u UserRecord) TotalEnergyEntity() string {
	return u.Sensors[SENSOR_TYPE_TOTAL_ENERGY]
}

// ChannelStat is the rendered live value of one channel.
type ChannelStat struct {
	Type     SensorType `json:"type"`
	EntityId string     `json:"entity_id"`
	Value    string     `json:"value"`
	Unit     string     `json:"unit,omitempty"`
	Icon     string     `json:"icon,omitempty"`
}

type UserStats struct {
	BaseName    string        `json:"base_name"`
	DisplayName string        `json:"display_name"`
	Channels    []ChannelStat `json:"channels"`
}
