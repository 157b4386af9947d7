package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("vmeter")
	assert.NoError(err)
	assert.Equal("vmeter", topic)

	topic, err = CheckMQTTTopic("VMeter_1")
	assert.NoError(err)
	assert.Equal("vmeter_1", topic, "topic is lowercased")

	_, err = CheckMQTTTopic("bad/topic")
	assert.Error(err)

	_, err = CheckMQTTTopic("")
	assert.Error(err)
}
