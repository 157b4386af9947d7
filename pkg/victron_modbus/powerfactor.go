package victron_modbus

import "math"

// Denominators below this are treated as zero apparent power to avoid
// division blow-up near zero load.
const apparentPowerEpsilon = 1e-6

// CalculatePowerFactors derives cos φ per phase and for the whole meter from
// a snapshot. It is a pure function: the snapshot is only read, and every
// result is either a clamped value in [-1, 1] or unavailable.
func CalculatePowerFactors(snap *Snapshot) PowerFactors {
	pf := PowerFactors{}
	for i, phase := range snap.Phase {
		pf.Phase[i] = phasePowerFactor(phase.ActivePower, phase.Voltage, phase.Current)
	}
	pf.Total = totalPowerFactor(snap)
	return pf
}

// phasePowerFactor is P / (U * I), available only when all three inputs are
// present and the apparent power is not negligible.
func phasePowerFactor(power, voltage, current Measurement) Measurement {
	if !power.Valid || !voltage.Valid || !current.Valid {
		return Unavailable()
	}
	denom := voltage.Value * current.Value
	if math.Abs(denom) < apparentPowerEpsilon {
		return Unavailable()
	}
	return Available(clampPowerFactor(power.Value / denom))
}

// totalPowerFactor is P_total / Σ|U*I|. A phase with an unavailable voltage
// or current contributes nothing to the apparent-power sum, matching the
// meter's established behavior of not distinguishing a missing phase from a
// zero-current one.
func totalPowerFactor(snap *Snapshot) Measurement {
	if !snap.TotalActivePower.Valid {
		return Unavailable()
	}
	var apparentTotal float64
	for _, phase := range snap.Phase {
		if phase.Voltage.Valid && phase.Current.Valid {
			apparentTotal += math.Abs(phase.Voltage.Value * phase.Current.Value)
		}
	}
	if apparentTotal <= apparentPowerEpsilon {
		return Unavailable()
	}
	return Available(clampPowerFactor(snap.TotalActivePower.Value / apparentTotal))
}

func clampPowerFactor(pf float64) float64 {
	return math.Max(-1, math.Min(1, pf))
}
