package victron_modbus

import "encoding/json"

// RegisterKind selects how raw register words are interpreted.
type RegisterKind int

const (
	Int16 RegisterKind = iota
	Uint16
	Int32
	Uint32
)

// Words returns the number of 16-bit registers a value of this kind occupies.
func (k RegisterKind) Words() uint16 {
	switch k {
	case Int16, Uint16:
		return 1
	default:
		return 2
	}
}

func (k RegisterKind) String() string {
	switch k {
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	}
	return "unknown"
}

// RegisterDef describes one value in the meter's register map.
// The VM-3P75CT map is fixed, community-established and 0-based.
type RegisterDef struct {
	Name    string
	Address uint16
	Kind    RegisterKind
	Scale   float64
}

// System-wide registers.
var (
	regTotalActivePower   = RegisterDef{"P_total_W", 12416, Int32, 1}
	regTotalEnergyForward = RegisterDef{"E_total_forward_kWh", 12340, Uint32, 0.01}
	regTotalEnergyReverse = RegisterDef{"E_total_reverse_kWh", 12342, Uint32, 0.01}
	regPENVoltage         = RegisterDef{"U_PEN_V", 12339, Int16, 0.01}
	regFrequency          = RegisterDef{"freq_Hz", 12338, Uint16, 0.01}
)

type phaseRegisters struct {
	voltage       RegisterDef
	current       RegisterDef
	activePower   RegisterDef
	energyForward RegisterDef
	energyReverse RegisterDef
}

// Per-phase registers, L1 to L3.
var regPhase = [3]phaseRegisters{
	{
		voltage:       RegisterDef{"U_L1_V", 12352, Int16, 0.01},
		current:       RegisterDef{"I_L1_A", 12353, Int16, 0.01},
		activePower:   RegisterDef{"P_L1_W", 12418, Int32, 1},
		energyForward: RegisterDef{"E_L1_forward_kWh", 12354, Uint32, 0.01},
		energyReverse: RegisterDef{"E_L1_reverse_kWh", 12356, Uint32, 0.01},
	},
	{
		voltage:       RegisterDef{"U_L2_V", 12360, Int16, 0.01},
		current:       RegisterDef{"I_L2_A", 12361, Int16, 0.01},
		activePower:   RegisterDef{"P_L2_W", 12422, Int32, 1},
		energyForward: RegisterDef{"E_L2_forward_kWh", 12362, Uint32, 0.01},
		energyReverse: RegisterDef{"E_L2_reverse_kWh", 12364, Uint32, 0.01},
	},
	{
		voltage:       RegisterDef{"U_L3_V", 12368, Int16, 0.01},
		current:       RegisterDef{"I_L3_A", 12369, Int16, 0.01},
		activePower:   RegisterDef{"P_L3_W", 12426, Int32, 1},
		energyForward: RegisterDef{"E_L3_forward_kWh", 12370, Uint32, 0.01},
		energyReverse: RegisterDef{"E_L3_reverse_kWh", 12372, Uint32, 0.01},
	},
}

// Measurement is an engineering-unit value that may be unavailable when the
// underlying register read failed. A zero value is a valid reading, never a
// stand-in for "unavailable".
type Measurement struct {
	Value float64
	Valid bool
}

func Available(value float64) Measurement {
	return Measurement{Value: value, Valid: true}
}

func Unavailable() Measurement {
	return Measurement{}
}

// MarshalJSON renders unavailable measurements as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// PhaseSnapshot holds the measurements of a single phase.
type PhaseSnapshot struct {
	Voltage       Measurement
	Current       Measurement
	ActivePower   Measurement
	EnergyForward Measurement
	EnergyReverse Measurement
}

// Snapshot is the result of one polling cycle. It is assembled once and then
// only read; each measurement's validity is independent of the others.
type Snapshot struct {
	TotalActivePower   Measurement
	TotalEnergyForward Measurement
	TotalEnergyReverse Measurement
	PENVoltage         Measurement
	Frequency          Measurement
	Phase              [3]PhaseSnapshot
}

// NamedMeasurement pairs a measurement with its wire-compatible name.
type NamedMeasurement struct {
	Name string
	Measurement
}

// NamedValues returns all measurements in the fixed register-map order:
// system totals first, then L1, L2, L3.
func (s *Snapshot) NamedValues() []NamedMeasurement {
	values := []NamedMeasurement{
		{regTotalActivePower.Name, s.TotalActivePower},
		{regTotalEnergyForward.Name, s.TotalEnergyForward},
		{regTotalEnergyReverse.Name, s.TotalEnergyReverse},
		{regPENVoltage.Name, s.PENVoltage},
		{regFrequency.Name, s.Frequency},
	}
	for i, phase := range s.Phase {
		regs := regPhase[i]
		values = append(values,
			NamedMeasurement{regs.voltage.Name, phase.Voltage},
			NamedMeasurement{regs.current.Name, phase.Current},
			NamedMeasurement{regs.activePower.Name, phase.ActivePower},
			NamedMeasurement{regs.energyForward.Name, phase.EnergyForward},
			NamedMeasurement{regs.energyReverse.Name, phase.EnergyReverse},
		)
	}
	return values
}

// PowerFactors holds the derived cos φ figures of a snapshot.
type PowerFactors struct {
	Phase [3]Measurement
	Total Measurement
}

func (pf PowerFactors) NamedValues() []NamedMeasurement {
	return []NamedMeasurement{
		{"PF_L1", pf.Phase[0]},
		{"PF_L2", pf.Phase[1]},
		{"PF_L3", pf.Phase[2]},
		{"PF_total", pf.Total},
	}
}
