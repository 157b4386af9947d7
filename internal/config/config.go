package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel    zapcore.Level
	MeterModbus MeterModbusConfig `mapstructure:"meter_modbus"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	PollConfig  PollConfig        `mapstructure:"poll"`
	Port        uint              `mapstructure:"port"`
	HttpLog     bool              `mapstructure:"http_log"`
}

type MeterModbusConfig struct {
	Host          string
	Port          uint
	UnitId        uint   `mapstructure:"unit_id"`
	Transport     string `mapstructure:"transport"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type PollConfig struct {
	IntervalMillis uint32 `mapstructure:"interval_millis"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
