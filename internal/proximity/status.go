package proximity

// maxBatteryLevel is the highest nibble that is a battery reading (100%).
// Higher values mean the reading is not available.
const maxBatteryLevel = 10

// BroadcastSide returns the physical side described by the "current" slots.
func (r Record) BroadcastSide() Side {
	if r.Flags.BroadcastLeft() {
		return SideLeft
	}
	return SideRight
}

// IsLeftBroadcast is true when the left bud is the broadcasting one.
func (r Record) IsLeftBroadcast() bool {
	return r.Flags.BroadcastLeft()
}

func (r Record) isCurrent(side Side) bool {
	return side == r.BroadcastSide()
}

func (r Record) batteryNibble(side Side) uint8 {
	if r.isCurrent(side) {
		return r.Battery.Current()
	}
	return r.Battery.Other()
}

// BatteryReading returns the battery percentage of a bud and whether the
// accessory reported one. Levels come in 10% steps.
func (r Record) BatteryReading(side Side) (uint8, bool) {
	return nibblePercent(r.batteryNibble(side))
}

// CaseBatteryReading is BatteryReading for the case.
func (r Record) CaseBatteryReading() (uint8, bool) {
	return nibblePercent(r.Battery.Case())
}

func nibblePercent(n uint8) (uint8, bool) {
	if n > maxBatteryLevel {
		return 0, false
	}
	return n * 10, true
}

// LeftBattery is the left bud level in percent; unavailable readings are 0.
func (r Record) LeftBattery() uint8 {
	v, _ := r.BatteryReading(SideLeft)
	return v
}

// RightBattery is the right bud level in percent; unavailable readings are 0.
func (r Record) RightBattery() uint8 {
	v, _ := r.BatteryReading(SideRight)
	return v
}

// CaseBattery is the case level in percent; unavailable readings are 0.
func (r Record) CaseBattery() uint8 {
	v, _ := r.CaseBatteryReading()
	return v
}

// Charging reports the charging bit of a bud.
func (r Record) Charging(side Side) bool {
	if r.isCurrent(side) {
		return r.Battery.CurrentCharging()
	}
	return r.Battery.OtherCharging()
}

func (r Record) LeftCharging() bool  { return r.Charging(SideLeft) }
func (r Record) RightCharging() bool { return r.Charging(SideRight) }
func (r Record) CaseCharging() bool  { return r.Battery.CaseCharging() }

// InEar reports whether a bud is in an ear. A charging bud sits in the case
// and is never in an ear, whatever the in-ear bit says.
func (r Record) InEar(side Side) bool {
	if r.Charging(side) {
		return false
	}
	if r.isCurrent(side) {
		return r.Flags.CurrentInEar()
	}
	return r.Flags.OtherInEar()
}

func (r Record) LeftInEar() bool  { return r.InEar(SideLeft) }
func (r Record) RightInEar() bool { return r.InEar(SideRight) }

func (r Record) BothInCase() bool { return r.Flags.BothInCase() }

func (r Record) LidOpen() bool { return !r.Lid.Closed() }
