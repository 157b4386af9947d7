package victron_modbus

func CreateTestMeterModbusReader() (MeterModbusReader, error) {
	return TestMeterModbusReader{}, nil
}

// TestMeterModbusReader returns a fixed, fully populated snapshot resembling
// a lightly loaded three-phase installation.
type TestMeterModbusReader struct {
}

func (reader TestMeterModbusReader) Open() error {
	return nil
}

func (reader TestMeterModbusReader) Close() error {
	return nil
}

func (reader TestMeterModbusReader) ReadSnapshot() (*Snapshot, error) {
	return &Snapshot{
		TotalActivePower:   Available(3389),
		TotalEnergyForward: Available(2770.34),
		TotalEnergyReverse: Available(550.22),
		PENVoltage:         Available(0.42),
		Frequency:          Available(50.02),
		Phase: [3]PhaseSnapshot{
			{
				Voltage:       Available(230.10),
				Current:       Available(5.123),
				ActivePower:   Available(1170),
				EnergyForward: Available(912.51),
				EnergyReverse: Available(180.02),
			},
			{
				Voltage:       Available(229.80),
				Current:       Available(4.870),
				ActivePower:   Available(1101),
				EnergyForward: Available(930.11),
				EnergyReverse: Available(185.10),
			},
			{
				Voltage:       Available(231.40),
				Current:       Available(5.010),
				ActivePower:   Available(1118),
				EnergyForward: Available(927.72),
				EnergyReverse: Available(185.10),
			},
		},
	}, nil
}
