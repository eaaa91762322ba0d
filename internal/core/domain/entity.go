package domain

import "strings"

type SensorType string

const (
	SENSOR_TYPE_CURRENT      SensorType = "current"
	SENSOR_TYPE_POWER        SensorType = "power"
	SENSOR_TYPE_VOLTAGE      SensorType = "voltage"
	SENSOR_TYPE_TEMPERATURE  SensorType = "temperature"
	SENSOR_TYPE_TOTAL_ENERGY SensorType = "total_energy"
)

// SensorTypes lists the closed vocabulary in display order.
var SensorTypes = []SensorType{
	SENSOR_TYPE_CURRENT,
	SENSOR_TYPE_POWER,
	SENSOR_TYPE_VOLTAGE,
	SENSOR_TYPE_TEMPERATURE,
	SENSOR_TYPE_TOTAL_ENERGY,
}

func (t SensorType) Valid() bool {
	for _, st := range SensorTypes {
		if st == t {
			return true
		}
	}
	return false
}

// SensorChannel is one row of the classification table.
type SensorChannel struct {
	Type     SensorType
	Suffix   string
	Phrase   string
	Unit     string
	Icon     string
	Decimals uint
}

// Vocabulary is the classification table used by the classifier, the sanitizer and the stats view.
type Vocabulary []SensorChannel

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		{Type: SENSOR_TYPE_CURRENT, Suffix: "current", Unit: "A", Icon: "mdi:current-ac", Decimals: 2},
		{Type: SENSOR_TYPE_POWER, Suffix: "power", Unit: "W", Icon: "mdi:flash", Decimals: 1},
		{Type: SENSOR_TYPE_VOLTAGE, Suffix: "voltage", Unit: "V", Icon: "mdi:sine-wave", Decimals: 1},
		{Type: SENSOR_TYPE_TEMPERATURE, Suffix: "temperature", Unit: "°C", Icon: "mdi:thermometer", Decimals: 1},
		{Type: SENSOR_TYPE_TOTAL_ENERGY, Suffix: "total_energy", Unit: "kWh", Icon: "mdi:lightning-bolt", Decimals: 3},
	}.WithPhrases()
}

// WithSuffixes returns a copy with the suffixes overridden by type. Unknown types are ignored.
func (v Vocabulary) WithSuffixes(suffixes map[string]string) Vocabulary {
	out := make(Vocabulary, len(v))
	copy(out, v)
	for i := range out {
		if s, ok := suffixes[string(out[i].Type)]; ok && strings.TrimSpace(s) != "" {
			out[i].Suffix = strings.ToLower(strings.TrimSpace(s))
		}
	}
	return out.WithPhrases()
}

// WithPhrases derives the display phrase of every channel from its suffix.
func (v Vocabulary) WithPhrases() Vocabulary {
	for i := range v {
		v[i].Phrase = strings.ReplaceAll(v[i].Suffix, "_", " ")
	}
	return v
}

func (v Vocabulary) Channel(t SensorType) (SensorChannel, bool) {
	for _, c := range v {
		if c.Type == t {
			return c, true
		}
	}
	return SensorChannel{}, false
}

// Overlap returns the first pair of suffixes where one ends the other on an underscore boundary.
func (v Vocabulary) Overlap() (string, string, bool) {
	for i := range v {
		for j := range v {
			if i == j {
				continue
			}
			a, b := v[i].Suffix, v[j].Suffix
			if a == b || strings.HasSuffix(a, "_"+b) {
				return a, b, true
			}
		}
	}
	return "", "", false
}

// RawEntity is one element of the host state snapshot.
type RawEntity struct {
	ID           string
	State        string
	FriendlyName string
	DeviceID     string
	AreaID       string
}

// Domain returns the namespace part of the entity id.
func (e RawEntity) Domain() string {
	if i := strings.Index(e.ID, "."); i > 0 {
		return e.ID[:i]
	}
	return ""
}

// Snapshot preserves host order.
type Snapshot []RawEntity

func (s Snapshot) Lookup(id string) (RawEntity, bool) {
	for _, e := range s {
		if e.ID == id {
			return e, true
		}
	}
	return RawEntity{}, false
}
