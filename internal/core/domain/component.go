package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE    = "bridge"
	SENSOR_ID_PANEL_STATUS    = "panel_status"
	SENSOR_ID_STATUS_MESSAGE  = "status_message"
	SENSOR_ID_LAST_REPORT     = "last_report"
	SENSOR_ID_USER_COUNT      = "user_count"
	BUTTON_ID_RELOAD          = "reload"
	BUTTON_ID_REFRESH         = "refresh_reports"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_ENUM         = "enum"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	ENTITY_CLASS_CONFIG       = "config"
	STATE_CLASS_MEASUREMENT   = "measurement"
	COMPONENT_SENSOR          = "sensor"
	COMPONENT_BINARY_SENSOR   = "binary_sensor"
	COMPONENT_BUTTON          = "button"
)

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string
	DeviceClass       string
	EntityCategory    string
	EnabledByDefault  *bool
	Icon              string
	Options           []string
}

type GenericButton struct {
	Device         Device
	Id             string
	Name           string
	UniqueId       string
	Icon           string
	EntityCategory string
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("receiptpanel_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Receipt Panel",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Receipt Panel %s", md5HashShort(baseTopic)),
	}
}

func PanelSensors(device Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:         device,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     COMPONENT_BINARY_SENSOR,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_BRIDGE_STATE),
	})
	// Generation status
	sensors = append(sensors, GenericSensor{
		Device:      device,
		Id:          SENSOR_ID_PANEL_STATUS,
		SensorType:  COMPONENT_SENSOR,
		Name:        "Generation status",
		DeviceClass: DEVICE_CLASS_ENUM,
		Options:     []string{string(STATUS_IDLE), string(STATUS_LOADING), string(STATUS_SUCCESS), string(STATUS_ERROR)},
		UniqueId:    uniqueId(device.Id, SENSOR_ID_PANEL_STATUS),
		Icon:        "mdi:file-clock",
	})
	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SENSOR_ID_STATUS_MESSAGE,
		SensorType: COMPONENT_SENSOR,
		Name:       "Status message",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_STATUS_MESSAGE),
		Icon:       "mdi:message-text",
	})
	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SENSOR_ID_LAST_REPORT,
		SensorType: COMPONENT_SENSOR,
		Name:       "Last report",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_LAST_REPORT),
		Icon:       "mdi:file-pdf-box",
	})
	sensors = append(sensors, GenericSensor{
		Device:         device,
		Id:             SENSOR_ID_USER_COUNT,
		SensorType:     COMPONENT_SENSOR,
		Name:           "Users",
		StateClass:     STATE_CLASS_MEASUREMENT,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_USER_COUNT),
		Icon:           "mdi:account-group",
	})

	return sensors
}

func PanelButtons(device Device) []GenericButton {
	return []GenericButton{
		{
			Device:         device,
			Id:             BUTTON_ID_RELOAD,
			Name:           "Reload users",
			UniqueId:       uniqueId(device.Id, BUTTON_ID_RELOAD),
			Icon:           "mdi:account-sync",
			EntityCategory: ENTITY_CLASS_CONFIG,
		},
		{
			Device:   device,
			Id:       BUTTON_ID_REFRESH,
			Name:     "Refresh reports",
			UniqueId: uniqueId(device.Id, BUTTON_ID_REFRESH),
			Icon:     "mdi:folder-refresh",
		},
	}
}

// IdDevice strips a device down to the fields HA needs to link an entity to an already announced device.
func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
