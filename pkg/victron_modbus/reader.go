package victron_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
)

// RegisterSource is the transport-level operation the access layer needs.
// *modbus.ModbusClient satisfies it.
type RegisterSource interface {
	ReadRegisters(addr uint16, quantity uint16, regType modbus.RegType) ([]uint16, error)
}

type MeterClient struct {
	source     RegisterSource
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

// ReadError reports that a register block could not be read through either
// access method.
type ReadError struct {
	Address    uint16
	Count      uint16
	InputErr   error
	HoldingErr error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read of %d register(s) at %d failed: input: %s; holding: %s",
		e.Count, e.Address, e.InputErr, e.HoldingErr)
}

// readRegisters reads count registers starting at addr. Input registers
// (function code 4) are tried first; on any failure or short result the same
// block is requested once more as holding registers (function code 3). Some
// firmware variants of the meter expose the map under one code only, so
// trying both maximizes read success without per-register configuration.
func (c MeterClient) readRegisters(addr uint16, count uint16) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", c.instrument)()

	words, inputErr := c.source.ReadRegisters(addr, count, modbus.INPUT_REGISTER)
	if inputErr == nil && len(words) == int(count) {
		return words, nil
	}
	if inputErr == nil {
		inputErr = fmt.Errorf("short result: %d of %d registers", len(words), count)
	}

	words, holdingErr := c.source.ReadRegisters(addr, count, modbus.HOLDING_REGISTER)
	if holdingErr == nil && len(words) == int(count) {
		return words, nil
	}
	if holdingErr == nil {
		holdingErr = fmt.Errorf("short result: %d of %d registers", len(words), count)
	}

	return nil, &ReadError{
		Address:    addr,
		Count:      count,
		InputErr:   inputErr,
		HoldingErr: holdingErr,
	}
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
