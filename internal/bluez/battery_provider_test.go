package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podbeacon/internal/podstate"
)

func device(alias string, connected bool) map[string]map[string]dbus.Variant {
	return map[string]map[string]dbus.Variant{
		deviceIface: {
			"Alias":     dbus.MakeVariant(alias),
			"Connected": dbus.MakeVariant(connected),
		},
	}
}

func TestFindDeviceInObjects(t *testing.T) {
	objects := map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		"/org/bluez/hci0":                   {"org.bluez.Adapter1": {}},
		"/org/bluez/hci0/dev_11_11_11_11_11": device("Keyboard", true),
		"/org/bluez/hci0/dev_22_22_22_22_22": device("Alex's AirPods Pro", false),
		"/org/bluez/hci0/dev_33_33_33_33_33": device("Alex's AirPods Pro", true),
	}

	path, err := findDeviceInObjects(objects)
	require.NoError(t, err)
	assert.Equal(t, "/org/bluez/hci0/dev_33_33_33_33_33", path)
}

func TestFindDeviceInObjectsNone(t *testing.T) {
	objects := map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		"/org/bluez/hci0/dev_22_22_22_22_22": device("AirPods", false),
		"/org/bluez/hci0/dev_44_44_44_44_44": {deviceIface: {"Alias": dbus.MakeVariant(42)}},
	}

	_, err := findDeviceInObjects(objects)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestPodsLevel(t *testing.T) {
	ptr := func(v int) *int { return &v }
	tests := []struct {
		name  string
		state *podstate.PodState
		want  uint8
		ok    bool
	}{
		{"nil state", nil, 0, false},
		{"no data", &podstate.PodState{}, 0, false},
		{"lower bud", &podstate.PodState{LeftBattery: ptr(70), RightBattery: ptr(40), CaseBattery: ptr(10)}, 40, true},
		{"single bud", &podstate.PodState{RightBattery: ptr(90)}, 90, true},
		{"case only", &podstate.PodState{CaseBattery: ptr(60)}, 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PodsLevel(tt.state)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectedChange(t *testing.T) {
	sig := func(name, iface string, changes map[string]dbus.Variant) *dbus.Signal {
		return &dbus.Signal{Name: name, Body: []interface{}{iface, changes, []string{}}}
	}

	connected, ok := connectedChange(sig("org.freedesktop.DBus.Properties.PropertiesChanged", deviceIface,
		map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)}))
	assert.True(t, ok)
	assert.True(t, connected)

	connected, ok = connectedChange(sig("org.freedesktop.DBus.Properties.PropertiesChanged", deviceIface,
		map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)}))
	assert.True(t, ok)
	assert.False(t, connected)

	_, ok = connectedChange(sig("org.freedesktop.DBus.Properties.PropertiesChanged", deviceIface,
		map[string]dbus.Variant{"RSSI": dbus.MakeVariant(int16(-60))}))
	assert.False(t, ok)

	_, ok = connectedChange(sig("org.freedesktop.DBus.Properties.PropertiesChanged", "org.bluez.Adapter1",
		map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)}))
	assert.False(t, ok)

	_, ok = connectedChange(&dbus.Signal{Name: "org.freedesktop.DBus.ObjectManager.InterfacesAdded"})
	assert.False(t, ok)
}

func TestBatteryDeviceProperties(t *testing.T) {
	bd := &BatteryDevice{
		path:       providerPath + "/" + podsBattery,
		percentage: 55,
		device:     "/org/bluez/hci0/dev_33_33_33_33_33",
		source:     providerSource,
	}

	v, dErr := bd.Get(batteryProviderIface, "Percentage")
	require.Nil(t, dErr)
	assert.Equal(t, uint8(55), v.Value())

	all, dErr := bd.GetAll(batteryProviderIface)
	require.Nil(t, dErr)
	assert.Equal(t, "podbeacon", all["Source"].Value())
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci0/dev_33_33_33_33_33"), all["Device"].Value())

	_, dErr = bd.Get(batteryProviderIface, "Voltage")
	assert.NotNil(t, dErr)
	_, dErr = bd.GetAll("org.bluez.Device1")
	assert.NotNil(t, dErr)
	assert.NotNil(t, bd.Set(batteryProviderIface, "Percentage", dbus.MakeVariant(uint8(1))))
}
