package service

import (
	"testing"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAggregator(allowed ...domain.DeviceMatcher) *Aggregator {
	return NewAggregator(NewEntityClassifier(domain.DefaultVocabulary()), allowed, zap.Must(zap.NewDevelopment()))
}

func TestClassify(t *testing.T) {

	assert := assert.New(t)
	c := NewEntityClassifier(domain.DefaultVocabulary())

	base, st, ok := c.Classify("sensor.unit7_total_energy")
	assert.True(ok)
	assert.Equal("unit7", base)
	assert.Equal(domain.SENSOR_TYPE_TOTAL_ENERGY, st)

	base, st, ok = c.Classify("sensor.Unit7_CURRENT")
	assert.True(ok, "suffix match is case insensitive")
	assert.Equal("Unit7", base)
	assert.Equal(domain.SENSOR_TYPE_CURRENT, st)

	_, _, ok = c.Classify("switch.unit7_current")
	assert.False(ok, "only the telemetry domain is classified")

	_, _, ok = c.Classify("sensor.unit7_humidity")
	assert.False(ok)

	_, _, ok = c.Classify("sensor._current")
	assert.False(ok, "empty base name")
}

func TestClassifyConfiguredSuffixes(t *testing.T) {

	assert := assert.New(t)
	vocab := domain.DefaultVocabulary().WithSuffixes(map[string]string{
		"current": "phase_a_current",
		"power":   "phase_a_power",
		"voltage": "phase_a_voltage",
	})
	c := NewEntityClassifier(vocab)

	base, st, ok := c.Classify("sensor.breaker_12_phase_a_current")
	assert.True(ok)
	assert.Equal("breaker_12", base)
	assert.Equal(domain.SENSOR_TYPE_CURRENT, st)

	_, _, ok = c.Classify("sensor.breaker_12_current")
	assert.False(ok)
}

func TestNormalizeControl(t *testing.T) {

	assert := assert.New(t)
	c := NewEntityClassifier(domain.DefaultVocabulary())

	base, ok := c.NormalizeControl("switch.unit7_switch")
	assert.True(ok)
	assert.Equal("unit7", base)

	base, ok = c.NormalizeControl("switch.unit7")
	assert.True(ok)
	assert.Equal("unit7", base)

	_, ok = c.NormalizeControl("sensor.unit7_switch")
	assert.False(ok)
}

func TestAggregateUnit7(t *testing.T) {

	require := require.New(t)

	users := testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.unit7_current", State: "1.2"},
		{ID: "sensor.unit7_total_energy", State: "10", FriendlyName: "Unit 7 Total Energy"},
	}, nil)

	require.Len(users, 1)
	u := users[0]
	require.Equal("unit7", u.BaseName)
	require.Equal("Unit 7", u.DisplayName)
	require.Equal(map[domain.SensorType]string{
		domain.SENSOR_TYPE_CURRENT:      "sensor.unit7_current",
		domain.SENSOR_TYPE_TOTAL_ENERGY: "sensor.unit7_total_energy",
	}, u.Sensors)
	require.Equal(domain.LOCATION_UNASSIGNED, u.Building)
	require.Equal(domain.LOCATION_UNASSIGNED, u.Street)
}

func TestAggregateRequiresCurrentAndTotalEnergy(t *testing.T) {

	assert := assert.New(t)

	users := testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.a_current"},
		{ID: "sensor.a_total_energy"},
		{ID: "sensor.b_current"},
		{ID: "sensor.b_power"},
		{ID: "sensor.c_total_energy"},
		{ID: "sensor.c_voltage"},
		{ID: "switch.d_switch"},
	}, nil)

	assert.Len(users, 1)
	assert.Equal("a", users[0].BaseName)
	assert.Equal("a", users[0].DisplayName, "falls back to base name")
}

func TestAggregateLabelPreference(t *testing.T) {

	assert := assert.New(t)

	users := testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.k_power", FriendlyName: "Kitchen Power"},
		{ID: "sensor.k_current", FriendlyName: "Kitchen Breaker Current"},
		{ID: "sensor.k_total_energy", FriendlyName: "Kitchen Breaker Total Energy"},
		{ID: "sensor.l_voltage", FriendlyName: "Laundry Voltage"},
		{ID: "sensor.l_current", FriendlyName: "Other Current"},
		{ID: "sensor.l_total_energy"},
	}, nil)

	assert.Len(users, 2)
	assert.Equal("Kitchen Breaker", users[0].DisplayName, "total energy label wins")
	assert.Equal("Laundry", users[1].DisplayName, "first non empty label")
}

func TestAggregateLastWriteWinsAndControl(t *testing.T) {

	assert := assert.New(t)

	users := testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.m_current"},
		{ID: "sensor.m_total_energy"},
		{ID: "switch.m_switch"},
	}, nil)

	assert.Len(users, 1)
	assert.Equal("switch.m_switch", users[0].ControlEntity)

	// same base and type twice: the later one is kept
	users = testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.n_current"},
		{ID: "sensor.n_total_energy"},
		{ID: "sensor.n_CURRENT"},
	}, nil)
	assert.Len(users, 1)
	assert.Equal("sensor.n_CURRENT", users[0].Sensors[domain.SENSOR_TYPE_CURRENT])
}

func TestAggregateLabelFollowsLatestTotalEnergy(t *testing.T) {

	assert := assert.New(t)

	users := testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.unit7_current", FriendlyName: "Unit Current"},
		{ID: "sensor.unit7_total_energy", FriendlyName: "Old Name Total Energy"},
		{ID: "sensor.unit7_TOTAL_ENERGY", FriendlyName: "New Name Total Energy"},
		{ID: "sensor.unit7_power", FriendlyName: "Power Label"},
	}, nil)

	assert.Len(users, 1)
	assert.Equal("sensor.unit7_TOTAL_ENERGY", users[0].Sensors[domain.SENSOR_TYPE_TOTAL_ENERGY])
	assert.Equal("New Name", users[0].DisplayName, "label and sensor come from the same entity")

	// an unlabeled later entity keeps the earlier label
	users = testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.unit8_current"},
		{ID: "sensor.unit8_total_energy", FriendlyName: "Kept Total Energy"},
		{ID: "sensor.unit8_TOTAL_ENERGY"},
	}, nil)
	assert.Len(users, 1)
	assert.Equal("Kept", users[0].DisplayName)
}

func testRegistry() *domain.Registry {
	return domain.NewRegistry(
		[]domain.FloorEntry{{Id: "f1", Name: "Main Street"}},
		[]domain.AreaEntry{{Id: "a1", Name: "Building A", FloorId: "f1"}, {Id: "a2", Name: "Building B"}},
		[]domain.DeviceEntry{
			{Id: "d1", Name: "Meter 1", Manufacturer: "Eastron", Model: "SDM120", AreaId: "a1"},
			{Id: "d2", Name: "Plug", Manufacturer: "Shelly", Model: "Plug S", AreaId: "a1"},
		},
		[]domain.EntityEntry{
			{EntityId: "sensor.u1_total_energy", DeviceId: "d1"},
			{EntityId: "sensor.u2_total_energy", DeviceId: "d2"},
			{EntityId: "sensor.u3_total_energy", DeviceId: "d1", AreaId: "a2"},
		},
	)
}

func testRegistrySnapshot() domain.Snapshot {
	return domain.Snapshot{
		{ID: "sensor.u1_current"}, {ID: "sensor.u1_total_energy"},
		{ID: "sensor.u2_current"}, {ID: "sensor.u2_total_energy"},
		{ID: "sensor.u3_current"}, {ID: "sensor.u3_total_energy"},
		{ID: "sensor.u4_current"}, {ID: "sensor.u4_total_energy"},
	}
}

func TestAggregateWithRegistry(t *testing.T) {

	require := require.New(t)

	users := testAggregator().Aggregate(testRegistrySnapshot(), testRegistry())
	require.Len(users, 4, "no allow-list, no gate")

	byName := map[string]domain.UserRecord{}
	for _, u := range users {
		byName[u.BaseName] = u
	}
	require.Equal("Building A", byName["u1"].Building)
	require.Equal("Main Street", byName["u1"].Street)
	require.Equal("Eastron", byName["u1"].Device.Manufacturer)
	require.Equal("Building B", byName["u3"].Building, "entity area overrides device area")
	require.Equal(domain.LOCATION_UNASSIGNED, byName["u3"].Street)
	require.Equal(domain.LOCATION_UNASSIGNED, byName["u4"].Building)
	require.Nil(byName["u4"].Device)
}

func TestAggregateDeviceAllowList(t *testing.T) {

	assert := assert.New(t)
	agg := testAggregator(domain.DeviceMatcher{Manufacturer: "eastron"})

	users := agg.Aggregate(testRegistrySnapshot(), testRegistry())
	names := []string{}
	for _, u := range users {
		names = append(names, u.BaseName)
	}
	assert.ElementsMatch([]string{"u1", "u3"}, names)

	// registry unavailable: gate skipped
	users = agg.Aggregate(testRegistrySnapshot(), nil)
	assert.Len(users, 4)
	for _, u := range users {
		assert.Equal(domain.LOCATION_UNASSIGNED, u.Building)
	}
}

func TestAggregateSortedOutput(t *testing.T) {

	assert := assert.New(t)

	users := testAggregator().Aggregate(domain.Snapshot{
		{ID: "sensor.z_current"}, {ID: "sensor.z_total_energy", FriendlyName: "Alpha Total Energy"},
		{ID: "sensor.a_current"}, {ID: "sensor.a_total_energy", FriendlyName: "Beta Total Energy"},
	}, nil)

	assert.Equal("z", users[0].BaseName)
	assert.Equal("a", users[1].BaseName)
}
