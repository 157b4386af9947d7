package mqtt

import (
	"testing"

	"vmeter2mqtt/internal/config"
	"vmeter2mqtt/internal/events"

	"github.com/stretchr/testify/assert"
)

func testClient() *MQTTClient {
	return &MQTTClient{
		cfg: config.MQTTConfig{BaseTopic: "vmeter"},
	}
}

func TestStateTopics(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	assert.Equal("vmeter/bridge/state", c.BridgeStateTopic())
	assert.Equal("vmeter/sensor/P_total_W/state", c.SensorStateTopic("P_total_W"))
	assert.Equal("vmeter/binary_sensor/meter/state", c.BinarySensorStateTopic("meter"))
}

func TestHADiscoveryMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	device := events.MeterDevice("192.168.0.155", 1)
	sensor := events.MeterSensors(device)[0]

	msg := GenericSensorToHADiscoveryMessage(c, sensor)

	assert.Equal("vmeter/sensor/P_total_W/state", msg.StateTopic)
	assert.Equal("vmeter/bridge/state", msg.AvTopic)
	assert.Equal("power", msg.DeviceClass)
	assert.Equal("W", msg.UnitOfMeasurement)
	assert.Equal("mqtt", msg.Platform)
	assert.Empty(msg.PayloadOn)

	topic := HADiscoverySensorTopic("homeassistant", sensor)
	assert.Equal("homeassistant/sensor/"+device.Id+"/P_total_W/config", topic)
}

func TestHADiscoveryBridgeStatePayloads(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	bridge := events.BridgeDevice("vmeter")
	sensor := events.BridgeSensors(bridge)[0]

	msg := GenericSensorToHADiscoveryMessage(c, sensor)

	assert.Equal("vmeter/bridge/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
}

func TestHADiscoveryMeterStatePayloads(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	device := events.MeterDevice("192.168.0.155", 1)
	sensor := events.MeterStateSensor(device)

	msg := GenericSensorToHADiscoveryMessage(c, sensor)

	assert.Equal("vmeter/binary_sensor/meter/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ON, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFF, msg.PayloadOff)
}
