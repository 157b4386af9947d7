package poll

import (
	"context"
	"sync"
	"time"

	"vmeter2mqtt/pkg/victron_modbus"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// MeasurementPublisher is what the poller needs from the MQTT layer.
type MeasurementPublisher interface {
	PublishMeterAvailability(online bool) error
	PublishMeasurement(id string, value float64) error
}

// Result is the outcome of one polling cycle.
type Result struct {
	Snapshot         *victron_modbus.Snapshot
	PowerFactors     victron_modbus.PowerFactors
	Timestamp        time.Time
	BasicReadFailure bool
}

// NamedValues returns measurements and derived power factors in a single
// ordered list.
func (r *Result) NamedValues() []victron_modbus.NamedMeasurement {
	return append(r.Snapshot.NamedValues(), r.PowerFactors.NamedValues()...)
}

// Poller reads one snapshot per cycle, derives power factors, logs the
// values and hands them to the publisher. Reads are sequential over a single
// connection; there is never more than one outstanding cycle.
type Poller struct {
	reader    victron_modbus.MeterModbusReader
	publisher MeasurementPublisher
	interval  time.Duration
	logger    *zap.Logger

	scheduler quartz.Scheduler

	mu         sync.RWMutex
	last       *Result
	meterState *bool
}

func NewPoller(reader victron_modbus.MeterModbusReader, publisher MeasurementPublisher,
	interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		reader:    reader,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With(zap.String("component", "poller")),
	}
}

// Start schedules the polling job. It returns once the scheduler is running;
// cancellation of ctx stops it between cycles.
func (p *Poller) Start(ctx context.Context) error {
	p.scheduler = quartz.NewStdScheduler()
	p.scheduler.Start(ctx)

	pollJob := job.NewFunctionJob(func(ctx context.Context) (bool, error) {
		p.PollOnce(ctx)
		return true, nil
	})
	detail := quartz.NewJobDetail(pollJob, quartz.NewJobKey("meter_poll"))
	return p.scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(p.interval))
}

func (p *Poller) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

// PollOnce runs a single cycle. A basic read failure marks the meter
// unreachable but never terminates the loop; a partial snapshot publishes
// whatever is available.
func (p *Poller) PollOnce(ctx context.Context) *Result {
	snap, err := p.reader.ReadSnapshot()
	result := &Result{
		Snapshot:         snap,
		PowerFactors:     victron_modbus.CalculatePowerFactors(snap),
		Timestamp:        time.Now(),
		BasicReadFailure: err != nil,
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	if result.BasicReadFailure {
		p.logger.Warn("could not read basic registers. check modbus settings, device id, "+
			"and that no other modbus master is using the meter", zap.Error(err))
	} else {
		p.logger.Info("meter snapshot", snapshotFields(result)...)
	}

	p.publishMeterAvailability(!result.BasicReadFailure)
	p.publishMeasurements(result)

	return result
}

// Last returns the most recent cycle result, nil before the first poll.
func (p *Poller) Last() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Healthy reports whether the last cycle is recent and read its basic
// registers.
func (p *Poller) Healthy() bool {
	last := p.Last()
	if last == nil || last.BasicReadFailure {
		return false
	}
	return time.Since(last.Timestamp) < 3*p.interval
}

// publishMeterAvailability publishes only on state transitions; the topic is
// retained so subscribers always see the current state.
func (p *Poller) publishMeterAvailability(online bool) {
	p.mu.Lock()
	changed := p.meterState == nil || *p.meterState != online
	p.meterState = &online
	p.mu.Unlock()
	if !changed {
		return
	}
	if err := p.publisher.PublishMeterAvailability(online); err != nil {
		p.logger.Error("could not publish meter availability", zap.Error(err))
	}
}

func (p *Poller) publishMeasurements(result *Result) {
	for _, value := range result.NamedValues() {
		if !value.Valid {
			continue
		}
		if err := p.publisher.PublishMeasurement(value.Name, value.Value); err != nil {
			p.logger.Error("could not publish measurement",
				zap.String("measurement", value.Name), zap.Error(err))
		}
	}
}

func snapshotFields(result *Result) []zap.Field {
	values := result.NamedValues()
	fields := make([]zap.Field, 0, len(values))
	for _, value := range values {
		if value.Valid {
			fields = append(fields, zap.Float64(value.Name, value.Value))
		} else {
			fields = append(fields, zap.String(value.Name, "NA"))
		}
	}
	return fields
}
