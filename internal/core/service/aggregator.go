package service

import (
	"sort"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"go.uber.org/zap"
)

// required channels of a user record
var requiredChannels = []domain.SensorType{domain.SENSOR_TYPE_CURRENT, domain.SENSOR_TYPE_TOTAL_ENERGY}

type Aggregator struct {
	Classifier     *EntityClassifier
	Sanitizer      *NameSanitizer
	AllowedDevices []domain.DeviceMatcher
	Logger         *zap.Logger
}

type userAccumulator struct {
	baseName string
	sensors  map[domain.SensorType]domain.RawEntity
	control  *domain.RawEntity
	label    string
}

func NewAggregator(classifier *EntityClassifier, allowedDevices []domain.DeviceMatcher, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		Classifier:     classifier,
		Sanitizer:      NewNameSanitizer(classifier.Vocabulary, classifier.ControlSuffix),
		AllowedDevices: allowedDevices,
		Logger:         logger,
	}
}

// Aggregate folds a snapshot into the canonical user list.
// registry may be nil, in which case every record is unassigned and the device gate is skipped.
func (a *Aggregator) Aggregate(snapshot domain.Snapshot, registry *domain.Registry) []domain.UserRecord {
	accs := make(map[string]*userAccumulator)
	get := func(baseName string) *userAccumulator {
		acc, ok := accs[baseName]
		if !ok {
			acc = &userAccumulator{
				baseName: baseName,
				sensors:  make(map[domain.SensorType]domain.RawEntity),
			}
			accs[baseName] = acc
		}
		return acc
	}

	for _, e := range snapshot {
		if baseName, sensorType, ok := a.Classifier.Classify(e.ID); ok {
			acc := get(baseName)
			acc.sensors[sensorType] = e
			acc.observeLabel(sensorType, e.FriendlyName)
			continue
		}
		if baseName, ok := a.Classifier.NormalizeControl(e.ID); ok {
			ent := e
			get(baseName).control = &ent
		}
	}

	resolver := RegistryResolver{Registry: registry}
	gate := resolver.Available() && len(a.AllowedDevices) > 0

	users := make([]domain.UserRecord, 0, len(accs))
	for _, acc := range accs {
		if !acc.complete() {
			continue
		}
		loc := resolver.Resolve(acc.resolutionOrder())
		if gate {
			if reason, ok := a.allowed(loc.Device); !ok {
				a.Logger.Debug("aggregator: user rejected", zap.String("base_name", acc.baseName), zap.String("reason", reason))
				continue
			}
		}
		users = append(users, a.toRecord(acc, loc))
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].DisplayName != users[j].DisplayName {
			return users[i].DisplayName < users[j].DisplayName
		}
		return users[i].BaseName < users[j].BaseName
	})
	a.Logger.Debug("aggregator: aggregation done", zap.Int("entities", len(snapshot)), zap.Int("users", len(users)))
	return users
}

func (a *Aggregator) allowed(device *domain.DeviceInfo) (string, bool) {
	if device == nil {
		return "no device linked", false
	}
	for _, m := range a.AllowedDevices {
		if m.Matches(device) {
			return "", true
		}
	}
	return "device " + device.Manufacturer + "/" + device.Model + " not in allow-list", false
}

func (a *Aggregator) toRecord(acc *userAccumulator, loc domain.Location) domain.UserRecord {
	sensors := make(map[domain.SensorType]string, len(acc.sensors))
	for t, e := range acc.sensors {
		sensors[t] = e.ID
	}
	displayName := acc.baseName
	if acc.label != "" {
		displayName = a.Sanitizer.Sanitize(acc.label)
	}
	rec := domain.UserRecord{
		BaseName:    acc.baseName,
		DisplayName: displayName,
		Sensors:     sensors,
		Device:      loc.Device,
		Building:    loc.Building,
		Street:      loc.Street,
	}
	if acc.control != nil {
		rec.ControlEntity = acc.control.ID
	}
	return rec
}

// observeLabel keeps the label of the stored total energy entity, any other label only fills a gap.
func (acc *userAccumulator) observeLabel(sensorType domain.SensorType, label string) {
	if label == "" {
		return
	}
	if sensorType == domain.SENSOR_TYPE_TOTAL_ENERGY || acc.label == "" {
		acc.label = label
	}
}

func (acc *userAccumulator) complete() bool {
	for _, t := range requiredChannels {
		if _, ok := acc.sensors[t]; !ok {
			return false
		}
	}
	return true
}

func (acc *userAccumulator) resolutionOrder() []domain.RawEntity {
	out := make([]domain.RawEntity, 0, len(acc.sensors)+1)
	if e, ok := acc.sensors[domain.SENSOR_TYPE_TOTAL_ENERGY]; ok {
		out = append(out, e)
	}
	for _, t := range domain.SensorTypes {
		if e, ok := acc.sensors[t]; ok && t != domain.SENSOR_TYPE_TOTAL_ENERGY {
			out = append(out, e)
		}
	}
	if acc.control != nil {
		out = append(out, *acc.control)
	}
	return out
}
