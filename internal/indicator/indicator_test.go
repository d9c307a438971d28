package indicator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podbeacon/internal/podstate"
	"podbeacon/internal/proximity"
)

func ptr(v int) *int { return &v }

func TestBatteryTitle(t *testing.T) {
	tests := []struct {
		label    string
		level    *int
		charging bool
		want     string
	}{
		{"Left", nil, false, "  Left:  --"},
		{"Left", ptr(80), false, "  Left:  80%"},
		{"Right", ptr(100), true, "  Right: 100% ⚡"},
		{"Case", ptr(0), false, "  Case:  0%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BatteryTitle(tt.label, tt.level, tt.charging))
	}
}

func TestTooltip(t *testing.T) {
	assert.Equal(t, searchingTooltip, Tooltip(nil))
	assert.Equal(t, searchingTooltip, Tooltip(&podstate.PodState{Model: proximity.ModelAirPodsPro}))

	s := &podstate.PodState{
		Model:        proximity.ModelAirPodsPro2,
		LeftBattery:  ptr(70),
		RightBattery: ptr(50),
		CaseBattery:  ptr(90),
	}
	assert.Equal(t, "AirPods Pro 2 - 50%", Tooltip(s))
}

func TestInEarTitle(t *testing.T) {
	tests := []struct {
		state *podstate.PodState
		want  string
	}{
		{nil, "  In ear: --"},
		{&podstate.PodState{LeftInEar: true, RightInEar: true}, "  In ear: both"},
		{&podstate.PodState{LeftInEar: true}, "  In ear: left"},
		{&podstate.PodState{RightInEar: true}, "  In ear: right"},
		{&podstate.PodState{BothInCase: true}, "  In ear: none (in case)"},
		{&podstate.PodState{}, "  In ear: none"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InEarTitle(tt.state))
	}
}

func TestLidTitle(t *testing.T) {
	assert.Equal(t, "  Lid: --", LidTitle(nil))
	assert.Equal(t, "  Lid: open", LidTitle(&podstate.PodState{LidOpen: true}))
	assert.Equal(t, "  Lid: closed", LidTitle(&podstate.PodState{}))
}

func TestUpdateBeforeReady(t *testing.T) {
	ind := New("", nil, nil)
	s := &podstate.PodState{LidOpen: true}
	ind.Update(s)
	assert.Same(t, s, ind.state)
}

func TestLoadIcon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	data, err := loadIcon(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, err = loadIcon(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorContains(t, err, "failed to read icon file")
}
