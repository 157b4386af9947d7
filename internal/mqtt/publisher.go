package mqtt

import (
	"encoding/json"
	"strconv"
	"time"

	"vmeter2mqtt/internal/config"
	"vmeter2mqtt/internal/events"

	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Publisher is the measurement-level surface the polling service talks to.
type Publisher struct {
	client *MQTTClient
	cfg    *config.Config
	logger *zap.Logger
}

func NewPublisher(client *MQTTClient, cfg *config.Config, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "mqtt_publisher")),
	}
}

func (p *Publisher) PublishBridgeAvailability(online bool) error {
	return p.client.Publish(p.client.BridgeStateTopic(), availabilityPayload(online), 0, true, publishTimeout)
}

// PublishMeterAvailability reports whether the meter's basic registers could
// be read this cycle.
func (p *Publisher) PublishMeterAvailability(online bool) error {
	topic := p.client.BinarySensorStateTopic(events.SENSOR_ID_METER_STATE)
	payload := MQTT_PAYLOAD_OFF
	if online {
		payload = MQTT_PAYLOAD_ON
	}
	return p.client.Publish(topic, payload, 0, true, publishTimeout)
}

func (p *Publisher) PublishMeasurement(id string, value float64) error {
	topic := p.client.SensorStateTopic(id)
	payload := strconv.FormatFloat(value, 'f', -1, 64)
	return p.client.Publish(topic, payload, 0, false, publishTimeout)
}

// PublishHADiscovery announces every sensor to Home Assistant. Discovery
// messages are retained so entities survive a Home Assistant restart.
func (p *Publisher) PublishHADiscovery() error {
	bridgeDevice := events.BridgeDevice(p.cfg.MQTT.BaseTopic)
	meterDevice := events.MeterDevice(p.cfg.MeterModbus.Host, p.cfg.MeterModbus.UnitId)
	meterDevice.ViaDevice = bridgeDevice.Id

	sensors := events.BridgeSensors(bridgeDevice)
	sensors = append(sensors, events.MeterStateSensor(meterDevice))
	sensors = append(sensors, events.MeterSensors(meterDevice)...)

	for _, sensor := range sensors {
		message := GenericSensorToHADiscoveryMessage(p.client, sensor)
		payload, err := json.Marshal(message)
		if err != nil {
			return err
		}
		topic := HADiscoverySensorTopic(p.cfg.MQTT.HADiscoveryTopic, sensor)
		if err := p.client.Publish(topic, payload, 0, true, publishTimeout); err != nil {
			return err
		}
		p.logger.Debug("published discovery config", zap.String("topic", topic))
	}
	return nil
}

func availabilityPayload(online bool) string {
	if online {
		return MQTT_PAYLOAD_ONLINE
	}
	return MQTT_PAYLOAD_OFFLINE
}
