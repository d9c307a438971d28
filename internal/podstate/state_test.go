package podstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podbeacon/internal/proximity"
)

// capturedPro3 is a live advertisement from a right bud broadcasting while both
// buds are worn.
var capturedPro3 = []byte{
	0x07, 0x19, 0x01, 0x27, 0x20, 0x0b, 0x99, 0x8f, 0x11, 0x00, 0x05,
	0x63, 0xfc, 0xfb, 0xb4, 0x39, 0x01, 0x1c, 0x61, 0xe7, 0xe4, 0xaa, 0x95, 0x83, 0x2c, 0x5b, 0x57,
}

func record(t *testing.T, edit func(b []byte)) proximity.Record {
	t.Helper()
	data := append([]byte(nil), capturedPro3...)
	if edit != nil {
		edit(data)
	}
	r, ok := proximity.Decode(data)
	require.True(t, ok)
	return r
}

func TestFromRecord(t *testing.T) {
	s := FromRecord(record(t, nil))

	assert.Equal(t, DataSourceBLE, s.Source)
	assert.Equal(t, proximity.SideRight, s.PrimaryPod)
	require.NotNil(t, s.LeftBattery)
	require.NotNil(t, s.RightBattery)
	assert.Equal(t, 90, *s.LeftBattery)
	assert.Equal(t, 90, *s.RightBattery)
	assert.Nil(t, s.CaseBattery, "case nibble 0xF is not reported")
	assert.True(t, s.LeftInEar)
	assert.True(t, s.RightInEar)
	assert.True(t, s.LidOpen)
	assert.False(t, s.BothInCase)
	assert.Equal(t, proximity.ModelUnknown, s.Model)
	assert.Equal(t, [proximity.TailSize]byte{}, s.Record.Tail, "kept record is redacted")
	assert.Equal(t, uint16(0x2027), s.Record.ModelID)
}

func TestFromRecordCharging(t *testing.T) {
	// Current (right) bud charging in the case, case at 40%.
	s := FromRecord(record(t, func(b []byte) {
		b[5] = 0x04
		b[7] = 0x54
	}))

	assert.True(t, s.RightCharging)
	assert.False(t, s.LeftCharging)
	assert.True(t, s.CaseCharging)
	require.NotNil(t, s.CaseBattery)
	assert.Equal(t, 40, *s.CaseBattery)
	assert.True(t, s.BothInCase)
	assert.False(t, s.RightInEar)
}

func TestApplyPrecise(t *testing.T) {
	s := FromRecord(record(t, nil))
	left, right := uint8(62), uint8(45)
	s.ApplyPrecise(proximity.PreciseBattery{
		Left:          &left,
		Right:         &right,
		RightCharging: true,
	})

	assert.Equal(t, DataSourceDecrypted, s.Source)
	assert.Equal(t, 62, *s.LeftBattery)
	assert.Equal(t, 45, *s.RightBattery)
	assert.Nil(t, s.CaseBattery)
	assert.True(t, s.LeftInEar)
	assert.False(t, s.RightInEar, "a charging bud is never in an ear")
}

func TestLowestBattery(t *testing.T) {
	a, b := 70, 30
	tests := []struct {
		name  string
		state PodState
		want  int
		has   bool
	}{
		{"no data", PodState{}, 0, false},
		{"one value", PodState{CaseBattery: &a}, 70, true},
		{"minimum", PodState{LeftBattery: &a, RightBattery: &b}, 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.LowestBattery())
			assert.Equal(t, tt.has, tt.state.HasBatteryData())
		})
	}
}

func TestSameReading(t *testing.T) {
	a := FromRecord(record(t, nil))
	b := FromRecord(record(t, nil))
	b.Device = "/org/bluez/hci0/dev_other"
	assert.True(t, a.SameReading(b))

	c := FromRecord(record(t, func(b []byte) { b[6] = 0x98 }))
	assert.False(t, a.SameReading(c))

	assert.False(t, a.SameReading(nil))
	assert.True(t, (*PodState)(nil).SameReading(nil))
}

func TestDataSourceString(t *testing.T) {
	assert.Equal(t, "BLE", DataSourceBLE.String())
	assert.Equal(t, "Decrypted", DataSourceDecrypted.String())
	assert.Equal(t, "Unknown", DataSourceUnknown.String())
}
