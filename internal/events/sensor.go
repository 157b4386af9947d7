package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE = "bridge"
	SENSOR_ID_METER_STATE  = "meter"

	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"

	DEVICE_CLASS_CURRENT      = "current"
	DEVICE_CLASS_ENERGY       = "energy"
	DEVICE_CLASS_FREQUENCY    = "frequency"
	DEVICE_CLASS_POWER        = "power"
	DEVICE_CLASS_POWER_FACTOR = "power_factor"
	DEVICE_CLASS_VOLTAGE      = "voltage"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"

	ENTITY_CLASS_DIAGNOSTIC = "diagnostic"

	SENSOR_TYPE_SENSOR = "sensor"
	SENSOR_TYPE_BINARY = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("vmeter_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "vmeter2mqtt",
		Model:        "VMeter Bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("VMeter Bridge %s", md5HashShort(baseTopic)),
	}
}

// MeterDevice identifies the physical meter. The VM-3P75CT register map has
// no readable serial, so host and unit id stand in for it.
func MeterDevice(host string, unitId uint) Device {
	key := fmt.Sprintf("%s#%d", host, unitId)
	return Device{
		Id:           fmt.Sprintf("vm3p75ct_%s", md5HashShort(key)),
		Manufacturer: "Victron Energy",
		Model:        "VM-3P75CT",
		Name:         fmt.Sprintf("VM-3P75CT %s", md5HashShort(key)),
	}
}

// MeterSensors enumerates one sensor per published measurement, in snapshot
// order, followed by the derived power factors.
func MeterSensors(meterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors,
		powerSensor(meterDevice, "P_total_W", "Total active power"),
		energySensor(meterDevice, "E_total_forward_kWh", "Total energy forward"),
		energySensor(meterDevice, "E_total_reverse_kWh", "Total energy reverse"),
		voltageSensor(meterDevice, "U_PEN_V", "PEN voltage"),
		measurementSensor(meterDevice, "freq_Hz", "Grid frequency", DEVICE_CLASS_FREQUENCY, "Hz", "mdi:sine-wave"),
	)

	for n := 1; n <= 3; n++ {
		sensors = append(sensors,
			voltageSensor(meterDevice, fmt.Sprintf("U_L%d_V", n), fmt.Sprintf("L%d voltage", n)),
			measurementSensor(meterDevice, fmt.Sprintf("I_L%d_A", n), fmt.Sprintf("L%d current", n), DEVICE_CLASS_CURRENT, "A", ""),
			powerSensor(meterDevice, fmt.Sprintf("P_L%d_W", n), fmt.Sprintf("L%d active power", n)),
			energySensor(meterDevice, fmt.Sprintf("E_L%d_forward_kWh", n), fmt.Sprintf("L%d energy forward", n)),
			energySensor(meterDevice, fmt.Sprintf("E_L%d_reverse_kWh", n), fmt.Sprintf("L%d energy reverse", n)),
		)
	}

	for n := 1; n <= 3; n++ {
		sensors = append(sensors,
			measurementSensor(meterDevice, fmt.Sprintf("PF_L%d", n), fmt.Sprintf("L%d power factor", n), DEVICE_CLASS_POWER_FACTOR, "", ""))
	}
	sensors = append(sensors,
		measurementSensor(meterDevice, "PF_total", "Total power factor", DEVICE_CLASS_POWER_FACTOR, "", ""))

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func MeterStateSensor(meterDevice Device) GenericSensor {
	return GenericSensor{
		Device:         meterDevice,
		Id:             SENSOR_ID_METER_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Meter reachable",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(meterDevice.Id, SENSOR_ID_METER_STATE),
	}
}

func measurementSensor(device Device, id, name, deviceClass, unit, icon string) GenericSensor {
	return GenericSensor{
		Device:            device,
		Id:                id,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       deviceClass,
		UnitOfMeasurement: unit,
		Icon:              icon,
		UniqueId:          uniqueId(device.Id, id),
	}
}

func powerSensor(device Device, id, name string) GenericSensor {
	return measurementSensor(device, id, name, DEVICE_CLASS_POWER, "W", "")
}

func voltageSensor(device Device, id, name string) GenericSensor {
	return measurementSensor(device, id, name, DEVICE_CLASS_VOLTAGE, "V", "")
}

func energySensor(device Device, id, name string) GenericSensor {
	sensor := measurementSensor(device, id, name, DEVICE_CLASS_ENERGY, "kWh", "")
	sensor.StateClass = STATE_CLASS_TOTAL_INCREASING
	return sensor
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
