package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

var cliUsers = []domain.UserRecord{
	{
		BaseName:    "john",
		DisplayName: "Meter John",
		Building:    "Building A",
		Street:      "Main Street",
		Sensors:     map[domain.SensorType]string{domain.SENSOR_TYPE_TOTAL_ENERGY: "sensor.john_total_energy"},
	},
}

func TestWriteUsers(t *testing.T) {

	assert := assert.New(t)

	var buf bytes.Buffer
	require.NoError(t, writeUsers(&buf, "json", cliUsers))
	var fromJSON []domain.UserRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(cliUsers, fromJSON)

	buf.Reset()
	require.NoError(t, writeUsers(&buf, "yaml", cliUsers))
	assert.Contains(buf.String(), "base_name: john")
	assert.Contains(buf.String(), "total_energy: sensor.john_total_energy")
	var fromYAML []domain.UserRecord
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(cliUsers, fromYAML)

	buf.Reset()
	require.NoError(t, writeUsers(&buf, "xlsx", cliUsers))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.USERS_SHEET)
	require.NoError(t, err)
	assert.Len(rows, 2)

	buf.Reset()
	require.NoError(t, writeUsers(&buf, "json", nil))
	assert.Equal("[]\n", buf.String())

	assert.Error(writeUsers(&buf, "csv", cliUsers))
}
