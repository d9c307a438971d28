package proximity

// Flags is the status byte of a proximity pairing record.
//
//	| 7 | 6 | 5 | 4 | 3 | 2 | 1 | 0 |
//	| ? | ? | B | ? | O | C | I | ? |
//
// B: current side is the left bud, O: other bud in ear, C: both buds in
// case, I: current bud in ear.
type Flags uint8

const (
	flagCurrentInEar  Flags = 1 << 1
	flagBothInCase    Flags = 1 << 2
	flagOtherInEar    Flags = 1 << 3
	flagBroadcastLeft Flags = 1 << 5
)

// CurrentInEar reports the in-ear bit of the broadcasting bud.
func (f Flags) CurrentInEar() bool { return f&flagCurrentInEar != 0 }

// OtherInEar reports the in-ear bit of the non-broadcasting bud.
func (f Flags) OtherInEar() bool { return f&flagOtherInEar != 0 }

func (f Flags) BothInCase() bool { return f&flagBothInCase != 0 }

// BroadcastLeft is true when the "current" slots describe the left bud.
func (f Flags) BroadcastLeft() bool { return f&flagBroadcastLeft != 0 }

// BatteryStatus covers the two battery bytes.
//
// Bits holds the current bud level in the low nibble and the other bud level
// in the high nibble. Extra holds the case level in the low nibble followed by
// the current, other and case charging bits.
type BatteryStatus struct {
	Bits  uint8
	Extra uint8
}

const (
	chargingCurrent uint8 = 1 << 4
	chargingOther   uint8 = 1 << 5
	chargingCase    uint8 = 1 << 6
)

// Current is the raw battery nibble of the broadcasting bud.
func (b BatteryStatus) Current() uint8 { return b.Bits & 0x0F }

// Other is the raw battery nibble of the non-broadcasting bud.
func (b BatteryStatus) Other() uint8 { return (b.Bits >> 4) & 0x0F }

// Case is the raw battery nibble of the charging case.
func (b BatteryStatus) Case() uint8 { return b.Extra & 0x0F }

func (b BatteryStatus) CurrentCharging() bool { return b.Extra&chargingCurrent != 0 }
func (b BatteryStatus) OtherCharging() bool   { return b.Extra&chargingOther != 0 }
func (b BatteryStatus) CaseCharging() bool    { return b.Extra&chargingCase != 0 }

// LidStatus is the case lid byte.
type LidStatus uint8

// SwitchCount counts lid open/close transitions, wrapping at 8.
func (l LidStatus) SwitchCount() uint8 { return uint8(l) & 0x07 }

func (l LidStatus) Closed() bool { return l&0x08 != 0 }
