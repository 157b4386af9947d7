package victron_modbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

const DefaultPort = 502

// ErrBasicRead marks a cycle in which not even the total active power could
// be read. Callers should treat it as "meter unreachable or misconfigured",
// as opposed to a partial snapshot where only some registers are unsupported.
var ErrBasicRead = errors.New("could not read basic registers")

type MeterModbusReader interface {
	Open() error
	Close() error
	ReadSnapshot() (*Snapshot, error)
}

type VMMeterModbusReader struct {
	MeterClient
	client *modbus.ModbusClient
	logger *zap.Logger
}

// CreateVMMeterModbusReader builds a reader for a VM-3P75CT at the given
// address. transport is "udp" (the meter's native Modbus/UDP) or "tcp".
func CreateVMMeterModbusReader(host string, port uint, unitId uint8, transport string, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (MeterModbusReader, error) {
	if transport != "udp" && transport != "tcp" {
		return nil, fmt.Errorf("unsupported modbus transport %q", transport)
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("%s://%s:%d", transport, host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	// instrumentation
	var inst []ModbusInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "meter")).With(zap.Uint8("unit", unitId)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	// set meter unit id
	err = client.SetUnitId(unitId)
	if err != nil {
		return nil, err
	}
	reader := VMMeterModbusReader{
		MeterClient: MeterClient{
			source:     client,
			instrument: inst,
		},
		client: client,
		logger: logger,
	}
	return &reader, nil
}

func (reader *VMMeterModbusReader) Open() error {
	return reader.client.Open()
}

func (reader *VMMeterModbusReader) Close() error {
	return reader.client.Close()
}

// ReadSnapshot performs one sequential read per named measurement, in the
// fixed register-map order. A failed read leaves that one measurement
// unavailable and never aborts the rest of the cycle. When the total active
// power is unavailable even after the holding-register fallback, the fully
// attempted snapshot is returned together with ErrBasicRead.
func (reader *VMMeterModbusReader) ReadSnapshot() (*Snapshot, error) {
	snap := Snapshot{
		TotalActivePower:   reader.readMeasurement(regTotalActivePower),
		TotalEnergyForward: reader.readMeasurement(regTotalEnergyForward),
		TotalEnergyReverse: reader.readMeasurement(regTotalEnergyReverse),
		PENVoltage:         reader.readMeasurement(regPENVoltage),
		Frequency:          reader.readMeasurement(regFrequency),
	}
	for i, regs := range regPhase {
		snap.Phase[i] = PhaseSnapshot{
			Voltage:       reader.readMeasurement(regs.voltage),
			Current:       reader.readMeasurement(regs.current),
			ActivePower:   reader.readMeasurement(regs.activePower),
			EnergyForward: reader.readMeasurement(regs.energyForward),
			EnergyReverse: reader.readMeasurement(regs.energyReverse),
		}
	}
	if !snap.TotalActivePower.Valid {
		return &snap, fmt.Errorf("%w: total active power at register %d unreadable",
			ErrBasicRead, regTotalActivePower.Address)
	}
	return &snap, nil
}

func (reader *VMMeterModbusReader) readMeasurement(def RegisterDef) Measurement {
	words, err := reader.readRegisters(def.Address, def.Kind.Words())
	if err != nil {
		reader.logger.Debug("register read failed",
			zap.String("measurement", def.Name), zap.Error(err))
		return Unavailable()
	}
	return Available(ScaledValue(words, def.Kind, def.Scale))
}

func traceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug(fmt.Sprintf("modbus [%s]: %d millis", fnName, readTime.Milliseconds()))
		},
	}
}
