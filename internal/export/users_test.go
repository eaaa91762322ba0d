package export

import (
	"bytes"
	"testing"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestUsersWorkbook(t *testing.T) {

	assert := assert.New(t)

	users := []domain.UserRecord{
		{
			BaseName:    "john",
			DisplayName: "Meter John",
			Building:    "Building A",
			Street:      "Main Street",
			Device:      &domain.DeviceInfo{Id: "d1", Manufacturer: "Eastron", Model: "SDM120"},
			Sensors: map[domain.SensorType]string{
				domain.SENSOR_TYPE_CURRENT:      "sensor.john_current",
				domain.SENSOR_TYPE_TOTAL_ENERGY: "sensor.john_total_energy",
			},
			ControlEntity: "switch.john_switch",
		},
		{
			BaseName:    "mary",
			DisplayName: "Mary",
			Building:    domain.LOCATION_UNASSIGNED,
			Street:      domain.LOCATION_UNASSIGNED,
			Sensors:     map[domain.SensorType]string{domain.SENSOR_TYPE_POWER: "sensor.mary_power"},
		},
	}

	data, err := UsersWorkbook(users)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(USERS_SHEET)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal("Base Name", rows[0][0])
	assert.Equal(string(domain.SENSOR_TYPE_TOTAL_ENERGY), rows[0][len(rows[0])-1])

	assert.Equal([]string{"john", "Meter John", "Building A", "Main Street", "Eastron", "SDM120", "switch.john_switch",
		"sensor.john_current", "", "", "", "sensor.john_total_energy"}, rows[1])
	assert.Equal("mary", rows[2][0])
	assert.Equal("", rows[2][4])
	assert.Equal("sensor.mary_power", rows[2][8])
}

func TestUsersWorkbookEmpty(t *testing.T) {

	data, err := UsersWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(USERS_SHEET)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
