package service

import (
	"strings"

	"github.com/berfenger/receiptpanel/internal/core/domain"
)

const (
	DEFAULT_SENSOR_DOMAIN  = "sensor"
	DEFAULT_CONTROL_DOMAIN = "switch"
	DEFAULT_CONTROL_SUFFIX = "switch"
)

type EntityClassifier struct {
	Vocabulary    domain.Vocabulary
	SensorDomain  string
	ControlDomain string
	ControlSuffix string
}

func NewEntityClassifier(vocabulary domain.Vocabulary) *EntityClassifier {
	return &EntityClassifier{
		Vocabulary:    vocabulary,
		SensorDomain:  DEFAULT_SENSOR_DOMAIN,
		ControlDomain: DEFAULT_CONTROL_DOMAIN,
		ControlSuffix: DEFAULT_CONTROL_SUFFIX,
	}
}

// Classify maps a telemetry entity id to its base name and channel.
// Entities outside the telemetry domain never match.
func (c *EntityClassifier) Classify(entityId string) (string, domain.SensorType, bool) {
	objectId, ok := objectIdIn(entityId, c.SensorDomain)
	if !ok {
		return "", "", false
	}
	lower := strings.ToLower(objectId)
	for _, ch := range c.Vocabulary {
		suffix := "_" + ch.Suffix
		if len(lower) > len(suffix) && strings.HasSuffix(lower, suffix) {
			return objectId[:len(objectId)-len(suffix)], ch.Type, true
		}
	}
	return "", "", false
}

// NormalizeControl maps a control entity id to the base name of the breaker it switches.
func (c *EntityClassifier) NormalizeControl(entityId string) (string, bool) {
	objectId, ok := objectIdIn(entityId, c.ControlDomain)
	if !ok {
		return "", false
	}
	if c.ControlSuffix != "" {
		suffix := "_" + strings.ToLower(c.ControlSuffix)
		if len(objectId) > len(suffix) && strings.HasSuffix(strings.ToLower(objectId), suffix) {
			objectId = objectId[:len(objectId)-len(suffix)]
		}
	}
	return objectId, true
}

func objectIdIn(entityId, entityDomain string) (string, bool) {
	prefix := entityDomain + "."
	if entityDomain == "" || len(entityId) <= len(prefix) || !strings.EqualFold(entityId[:len(prefix)], prefix) {
		return "", false
	}
	return entityId[len(prefix):], true
}
