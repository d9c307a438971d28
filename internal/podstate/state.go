package podstate

import (
	"time"

	"podbeacon/internal/proximity"
)

// DataSource indicates where the battery data originated from
type DataSource int

const (
	DataSourceUnknown   DataSource = iota
	DataSourceBLE                  // Plain advertisement fields (10% steps)
	DataSourceDecrypted            // Decrypted advertisement tail (1% steps)
)

func (d DataSource) String() string {
	switch d {
	case DataSourceBLE:
		return "BLE"
	case DataSourceDecrypted:
		return "Decrypted"
	default:
		return "Unknown"
	}
}

// PodState represents the complete state of the pods, independent of data source.
// This is the unified state object that the Coordinator provides to all consumers.
type PodState struct {
	Source DataSource
	Device string // D-Bus path of the advertising device

	// Battery levels (0-100), nil if not reported
	LeftBattery  *int
	RightBattery *int
	CaseBattery  *int

	LeftCharging  bool
	RightCharging bool
	CaseCharging  bool

	LeftInEar  bool
	RightInEar bool

	BothInCase bool
	LidOpen    bool

	Model      proximity.Model
	Color      proximity.Color
	PrimaryPod proximity.Side // broadcasting bud

	// Record is the decoded advertisement with its tail redacted, kept for
	// diagnostics.
	Record proximity.Record

	Updated time.Time
}

// FromRecord builds a state from a decoded advertisement. Battery readings the
// accessory marks as unavailable are left nil.
func FromRecord(r proximity.Record) *PodState {
	s := &PodState{
		Source:        DataSourceBLE,
		LeftCharging:  r.LeftCharging(),
		RightCharging: r.RightCharging(),
		CaseCharging:  r.CaseCharging(),
		LeftInEar:     r.LeftInEar(),
		RightInEar:    r.RightInEar(),
		BothInCase:    r.BothInCase(),
		LidOpen:       r.LidOpen(),
		Model:         r.Model(),
		Color:         r.Color,
		PrimaryPod:    r.BroadcastSide(),
		Record:        r.Redact(),
	}

	if v, ok := r.BatteryReading(proximity.SideLeft); ok {
		s.LeftBattery = intPtr(int(v))
	}
	if v, ok := r.BatteryReading(proximity.SideRight); ok {
		s.RightBattery = intPtr(int(v))
	}
	if v, ok := r.CaseBatteryReading(); ok {
		s.CaseBattery = intPtr(int(v))
	}
	return s
}

// ApplyPrecise overwrites the battery fields with decrypted 1% readings.
// In-ear flags are recomputed since charging may change.
func (p *PodState) ApplyPrecise(pb proximity.PreciseBattery) {
	p.Source = DataSourceDecrypted
	p.LeftBattery = uint8Ptr(pb.Left)
	p.RightBattery = uint8Ptr(pb.Right)
	p.CaseBattery = uint8Ptr(pb.Case)

	p.LeftInEar = p.LeftInEar && !pb.LeftCharging
	p.RightInEar = p.RightInEar && !pb.RightCharging
	p.LeftCharging = pb.LeftCharging
	p.RightCharging = pb.RightCharging
	p.CaseCharging = pb.CaseCharging
}

// HasBatteryData returns true if any battery level is available
func (p *PodState) HasBatteryData() bool {
	return p.LeftBattery != nil || p.RightBattery != nil || p.CaseBattery != nil
}

// LowestBattery returns the lowest battery level, or 0 if no data available
func (p *PodState) LowestBattery() int {
	lowest := 100
	hasData := false

	for _, level := range []*int{p.LeftBattery, p.RightBattery, p.CaseBattery} {
		if level == nil {
			continue
		}
		hasData = true
		if *level < lowest {
			lowest = *level
		}
	}

	if !hasData {
		return 0
	}
	return lowest
}

// SameReading reports whether o carries the same observable state as p,
// ignoring the device path and timestamp.
func (p *PodState) SameReading(o *PodState) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Source == o.Source &&
		equalInt(p.LeftBattery, o.LeftBattery) &&
		equalInt(p.RightBattery, o.RightBattery) &&
		equalInt(p.CaseBattery, o.CaseBattery) &&
		p.LeftCharging == o.LeftCharging &&
		p.RightCharging == o.RightCharging &&
		p.CaseCharging == o.CaseCharging &&
		p.LeftInEar == o.LeftInEar &&
		p.RightInEar == o.RightInEar &&
		p.BothInCase == o.BothInCase &&
		p.LidOpen == o.LidOpen &&
		p.Model == o.Model &&
		p.Color == o.Color &&
		p.PrimaryPod == o.PrimaryPod
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtr(v int) *int { return &v }

func uint8Ptr(v *uint8) *int {
	if v == nil {
		return nil
	}
	return intPtr(int(*v))
}
