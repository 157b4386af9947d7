package poll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vmeter2mqtt/pkg/victron_modbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublisher struct {
	availability []bool
	measurements map[string]float64
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{measurements: map[string]float64{}}
}

func (f *fakePublisher) PublishMeterAvailability(online bool) error {
	f.availability = append(f.availability, online)
	return nil
}

func (f *fakePublisher) PublishMeasurement(id string, value float64) error {
	f.measurements[id] = value
	return nil
}

// unreachableMeterReader fails its basic registers every cycle.
type unreachableMeterReader struct{}

func (r unreachableMeterReader) Open() error  { return nil }
func (r unreachableMeterReader) Close() error { return nil }

func (r unreachableMeterReader) ReadSnapshot() (*victron_modbus.Snapshot, error) {
	snap := &victron_modbus.Snapshot{
		Frequency: victron_modbus.Available(50.0),
	}
	return snap, fmt.Errorf("%w: total active power unreadable", victron_modbus.ErrBasicRead)
}

func testPoller(reader victron_modbus.MeterModbusReader, publisher MeasurementPublisher) *Poller {
	return NewPoller(reader, publisher, time.Second, zap.NewNop())
}

func TestPollOnce(t *testing.T) {

	require := require.New(t)

	reader, err := victron_modbus.CreateTestMeterModbusReader()
	require.NoError(err)

	publisher := newFakePublisher()
	poller := testPoller(reader, publisher)

	result := poller.PollOnce(context.Background())
	require.NotNil(result)
	require.False(result.BasicReadFailure)

	// 20 measurements plus 4 power factors
	require.Len(publisher.measurements, 24)
	assert.InDelta(t, 3389, publisher.measurements["P_total_W"], 1e-9)
	assert.Contains(t, publisher.measurements, "PF_total")

	require.Equal([]bool{true}, publisher.availability)
	require.Equal(result, poller.Last())
	require.True(poller.Healthy())
}

func TestPollOnceBasicReadFailure(t *testing.T) {

	require := require.New(t)

	publisher := newFakePublisher()
	poller := testPoller(unreachableMeterReader{}, publisher)

	result := poller.PollOnce(context.Background())
	require.True(result.BasicReadFailure)
	require.Equal([]bool{false}, publisher.availability)
	require.False(poller.Healthy())

	// measurements that did read are still published
	require.Contains(publisher.measurements, "freq_Hz")
	require.NotContains(publisher.measurements, "P_total_W")
}

func TestAvailabilityPublishedOnTransitionsOnly(t *testing.T) {

	require := require.New(t)

	reader, err := victron_modbus.CreateTestMeterModbusReader()
	require.NoError(err)

	publisher := newFakePublisher()
	poller := testPoller(reader, publisher)

	poller.PollOnce(context.Background())
	poller.PollOnce(context.Background())
	require.Equal([]bool{true}, publisher.availability)

	poller.reader = unreachableMeterReader{}
	poller.PollOnce(context.Background())
	require.Equal([]bool{true, false}, publisher.availability)

	poller.reader = reader
	poller.PollOnce(context.Background())
	require.Equal([]bool{true, false, true}, publisher.availability)
}

func TestHealthyBeforeFirstPoll(t *testing.T) {

	require := require.New(t)

	reader, err := victron_modbus.CreateTestMeterModbusReader()
	require.NoError(err)

	poller := testPoller(reader, newFakePublisher())
	require.Nil(poller.Last())
	require.False(poller.Healthy())
}

type failingPublisher struct{}

func (failingPublisher) PublishMeterAvailability(bool) error { return errors.New("broker down") }
func (failingPublisher) PublishMeasurement(string, float64) error {
	return errors.New("broker down")
}

func TestPublisherErrorsDoNotAbortCycle(t *testing.T) {

	require := require.New(t)

	reader, err := victron_modbus.CreateTestMeterModbusReader()
	require.NoError(err)

	poller := testPoller(reader, failingPublisher{})

	result := poller.PollOnce(context.Background())
	require.NotNil(result)
	require.False(result.BasicReadFailure)
	require.True(poller.Healthy())
}
