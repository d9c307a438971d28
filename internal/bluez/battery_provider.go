// Package bluez provides integration with BlueZ's Battery Provider D-Bus API.
//
// # D-Bus Connection Architecture
//
// This package implements the BlueZ Battery Provider protocol to expose the
// decoded earbud battery level to the system (GNOME Settings, UPower). The
// implementation follows the D-Bus ObjectManager pattern.
//
// # Critical Requirements
//
//  1. Single Connection Per Provider:
//     The Provider keeps one system bus connection for its lifetime. Device
//     discovery, battery registration and signal monitoring all use it.
//
//  2. InterfacesAdded Signal:
//     When adding a new battery object, the provider MUST emit the InterfacesAdded
//     signal on the ObjectManager interface. Without this signal, BlueZ will not
//     expose the battery information.
//
// # Usage
//
//	provider, err := bluez.NewProvider("hci0")
//	defer provider.Close()
//
//	coordinator.RegisterCallback(func(s *podstate.PodState) {
//		provider.Publish(s)
//	})
//	provider.WatchConnections()
//
// BlueZ shows one battery per device, so the lower of the two bud levels is
// exported. The tray and window show all three.
package bluez

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/rs/zerolog/log"

	"podbeacon/internal/podstate"
	"podbeacon/internal/util"
)

const (
	bluezService                = "org.bluez"
	deviceIface                 = "org.bluez.Device1"
	batteryProviderManagerIface = "org.bluez.BatteryProviderManager1"
	batteryProviderIface        = "org.bluez.BatteryProvider1"
	providerPath                = "/org/podbeacon/battery"
	providerSource              = "podbeacon"
	podsBattery                 = "pods"

	// aliasMarker selects which connected device receives the battery.
	aliasMarker = "AirPods"
)

// ErrNoDevice is returned when no connected matching device exists.
var ErrNoDevice = errors.New("no connected AirPods device found")

// BatteryDevice represents a single exported battery object
type BatteryDevice struct {
	path       dbus.ObjectPath
	percentage uint8
	device     dbus.ObjectPath
	source     string
}

// Provider manages battery information for BlueZ
type Provider struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	devices map[string]*BatteryDevice
	mu      sync.RWMutex

	// last published level, used when a device connects later
	level    uint8
	hasLevel bool
}

// NewProvider creates and registers a new battery provider with BlueZ on the
// given adapter (for example "hci0").
func NewProvider(adapter string) (*Provider, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	bp := &Provider{
		conn:    conn,
		adapter: dbus.ObjectPath("/org/bluez/" + adapter),
		devices: make(map[string]*BatteryDevice),
	}

	if err := bp.exportProvider(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export provider: %w", err)
	}

	if err := bp.register(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to register provider: %w", err)
	}

	return bp, nil
}

const providerIntrospect = `
<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-BUS Object Introspection 1.0//EN"
"http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
<node>
	<interface name="org.freedesktop.DBus.ObjectManager">
		<method name="GetManagedObjects">
			<arg name="objects" type="a{oa{sa{sv}}}" direction="out"/>
		</method>
		<signal name="InterfacesAdded">
			<arg name="object_path" type="o"/>
			<arg name="interfaces_and_properties" type="a{sa{sv}}"/>
		</signal>
		<signal name="InterfacesRemoved">
			<arg name="object_path" type="o"/>
			<arg name="interfaces" type="as"/>
		</signal>
	</interface>
</node>`

const batteryIntrospect = `
<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-BUS Object Introspection 1.0//EN"
"http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
<node>
	<interface name="org.bluez.BatteryProvider1">
		<property name="Percentage" type="y" access="read"/>
		<property name="Device" type="o" access="read"/>
		<property name="Source" type="s" access="read"/>
	</interface>
	<interface name="org.freedesktop.DBus.Properties">
		<method name="Get">
			<arg name="interface_name" type="s" direction="in"/>
			<arg name="property_name" type="s" direction="in"/>
			<arg name="value" type="v" direction="out"/>
		</method>
		<method name="GetAll">
			<arg name="interface_name" type="s" direction="in"/>
			<arg name="properties" type="a{sv}" direction="out"/>
		</method>
	</interface>
</node>`

// exportProvider exports the battery provider on D-Bus
func (bp *Provider) exportProvider() error {
	if err := bp.conn.Export(bp, providerPath, "org.freedesktop.DBus.ObjectManager"); err != nil {
		return err
	}
	return bp.conn.Export(introspect.Introspectable(providerIntrospect), providerPath, "org.freedesktop.DBus.Introspectable")
}

// register registers this provider with BlueZ BatteryProviderManager
func (bp *Provider) register() error {
	obj := bp.conn.Object(bluezService, bp.adapter)
	call := obj.Call(batteryProviderManagerIface+".RegisterBatteryProvider", 0, dbus.ObjectPath(providerPath))
	if call.Err != nil {
		return fmt.Errorf("failed to register battery provider: %w", call.Err)
	}
	return nil
}

// Publish exports the state's battery level. The battery object is created
// on first use against the connected device; without a connected device the
// level is remembered for WatchConnections.
func (bp *Provider) Publish(s *podstate.PodState) error {
	level, ok := PodsLevel(s)
	if !ok {
		return nil
	}

	bp.mu.Lock()
	bp.level, bp.hasLevel = level, true
	_, exists := bp.devices[podsBattery]
	bp.mu.Unlock()

	if exists {
		return bp.UpdateBatteryPercentage(podsBattery, level)
	}

	device, err := bp.DiscoverDevice()
	if err != nil {
		return err
	}
	if err := bp.AddBattery(podsBattery, level, device); err != nil {
		return err
	}
	log.Info().Str("device", device).Uint8("percentage", level).Msg("battery provider registered")
	return nil
}

// PodsLevel returns the level to export: the lower bud, falling back to the
// case when neither bud reports.
func PodsLevel(s *podstate.PodState) (uint8, bool) {
	if s == nil || !s.HasBatteryData() {
		return 0, false
	}
	fallback := -1
	if s.CaseBattery != nil {
		fallback = *s.CaseBattery
	}
	level := util.MinOr(s.LeftBattery, s.RightBattery, fallback)
	if level < 0 || level > 100 {
		return 0, false
	}
	return uint8(level), true
}

// AddBattery adds a new battery device to the provider
func (bp *Provider) AddBattery(name string, percentage uint8, devicePath string) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	batteryPath := dbus.ObjectPath(fmt.Sprintf("%s/%s", providerPath, name))

	device := &BatteryDevice{
		path:       batteryPath,
		percentage: percentage,
		device:     dbus.ObjectPath(devicePath),
		source:     providerSource,
	}

	if err := bp.conn.Export(device, batteryPath, "org.freedesktop.DBus.Properties"); err != nil {
		return err
	}
	if err := bp.conn.Export(introspect.Introspectable(batteryIntrospect), batteryPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return err
	}

	bp.devices[name] = device

	// Emit InterfacesAdded signal to notify BlueZ of the new battery
	interfaces := map[string]map[string]dbus.Variant{
		batteryProviderIface: device.properties(),
	}
	if err := bp.conn.Emit(providerPath, "org.freedesktop.DBus.ObjectManager.InterfacesAdded",
		batteryPath, interfaces); err != nil {
		return fmt.Errorf("failed to emit InterfacesAdded signal: %w", err)
	}

	return nil
}

func (bd *BatteryDevice) properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Percentage": dbus.MakeVariant(bd.percentage),
		"Device":     dbus.MakeVariant(bd.device),
		"Source":     dbus.MakeVariant(bd.source),
	}
}

// Get implements org.freedesktop.DBus.Properties.Get for BatteryDevice
func (bd *BatteryDevice) Get(iface string, property string) (dbus.Variant, *dbus.Error) {
	if iface != batteryProviderIface {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{iface})
	}

	v, ok := bd.properties()[property]
	if !ok {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", []interface{}{property})
	}
	return v, nil
}

// GetAll implements org.freedesktop.DBus.Properties.GetAll for BatteryDevice
func (bd *BatteryDevice) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != batteryProviderIface {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{iface})
	}
	return bd.properties(), nil
}

// Set implements org.freedesktop.DBus.Properties.Set. All properties are read-only.
func (bd *BatteryDevice) Set(iface string, property string, value dbus.Variant) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly", []interface{}{property})
}

// GetManagedObjects implements org.freedesktop.DBus.ObjectManager
func (bp *Provider) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	bp.mu.RLock()
	defer bp.mu.RUnlock()

	objects := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)
	for _, device := range bp.devices {
		objects[device.path] = map[string]map[string]dbus.Variant{
			batteryProviderIface: device.properties(),
		}
	}
	return objects, nil
}

// UpdateBatteryPercentage updates the battery percentage for a device
func (bp *Provider) UpdateBatteryPercentage(name string, percentage uint8) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	device, ok := bp.devices[name]
	if !ok {
		return fmt.Errorf("battery device %s not found", name)
	}
	if device.percentage == percentage {
		return nil
	}
	device.percentage = percentage

	changes := map[string]dbus.Variant{
		"Percentage": dbus.MakeVariant(percentage),
	}
	return bp.conn.Emit(device.path, "org.freedesktop.DBus.Properties.PropertiesChanged",
		batteryProviderIface, changes, []string{})
}

// RemoveBattery removes a battery device from the provider
func (bp *Provider) RemoveBattery(name string) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	device, ok := bp.devices[name]
	if !ok {
		return fmt.Errorf("battery device %s not found", name)
	}

	if err := bp.conn.Emit(providerPath, "org.freedesktop.DBus.ObjectManager.InterfacesRemoved",
		device.path, []string{batteryProviderIface}); err != nil {
		return fmt.Errorf("failed to emit InterfacesRemoved signal: %w", err)
	}

	bp.conn.Export(nil, device.path, "org.freedesktop.DBus.Properties")
	bp.conn.Export(nil, device.path, "org.freedesktop.DBus.Introspectable")

	delete(bp.devices, name)
	return nil
}

// DiscoverDevice searches BlueZ for the connected accessory
func (bp *Provider) DiscoverDevice() (string, error) {
	obj := bp.conn.Object(bluezService, "/")
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

	err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return "", fmt.Errorf("failed to get managed objects: %w", err)
	}

	return findDeviceInObjects(objects)
}

// findDeviceInObjects searches for a connected accessory in the given BlueZ objects
func findDeviceInObjects(objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant) (string, error) {
	for path, interfaces := range objects {
		deviceProps, ok := interfaces[deviceIface]
		if !ok {
			continue
		}
		alias, ok := deviceProps["Alias"].Value().(string)
		if !ok || !strings.Contains(alias, aliasMarker) {
			continue
		}
		if connected, ok := deviceProps["Connected"].Value().(bool); ok && connected {
			return string(path), nil
		}
	}
	return "", ErrNoDevice
}

// WatchConnections registers the battery when a matching device connects
// after startup, and removes it when the device disconnects.
func (bp *Provider) WatchConnections() error {
	rule := "type='signal',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path_namespace='/org/bluez'"
	if err := bp.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}

	signalChan := make(chan *dbus.Signal, 10)
	bp.conn.Signal(signalChan)

	go func() {
		for signal := range signalChan {
			connected, ok := connectedChange(signal)
			if !ok {
				continue
			}
			bp.handleConnection(string(signal.Path), connected)
		}
	}()

	return nil
}

// connectedChange extracts a Device1 Connected change from a PropertiesChanged signal
func connectedChange(signal *dbus.Signal) (bool, bool) {
	if signal.Name != "org.freedesktop.DBus.Properties.PropertiesChanged" || len(signal.Body) < 2 {
		return false, false
	}
	iface, ok := signal.Body[0].(string)
	if !ok || iface != deviceIface {
		return false, false
	}
	changes, ok := signal.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}
	v, ok := changes["Connected"]
	if !ok {
		return false, false
	}
	connected, ok := v.Value().(bool)
	return connected, ok
}

func (bp *Provider) handleConnection(devicePath string, connected bool) {
	bp.mu.RLock()
	existing, exists := bp.devices[podsBattery]
	level, hasLevel := bp.level, bp.hasLevel
	bp.mu.RUnlock()

	if !connected {
		if exists && string(existing.device) == devicePath {
			if err := bp.RemoveBattery(podsBattery); err != nil {
				log.Warn().Err(err).Msg("failed to remove battery")
			}
		}
		return
	}

	if exists || !hasLevel || !strings.Contains(bp.getDeviceAlias(devicePath), aliasMarker) {
		return
	}
	if err := bp.AddBattery(podsBattery, level, devicePath); err != nil {
		log.Warn().Err(err).Str("device", devicePath).Msg("failed to add battery")
		return
	}
	log.Info().Str("device", devicePath).Msg("battery provider registered for newly connected device")
}

// getDeviceAlias retrieves the alias/name of a Bluetooth device
func (bp *Provider) getDeviceAlias(devicePath string) string {
	obj := bp.conn.Object(bluezService, dbus.ObjectPath(devicePath))
	variant, err := obj.GetProperty(deviceIface + ".Alias")
	if err != nil {
		return ""
	}
	alias, _ := variant.Value().(string)
	return alias
}

// Close unregisters the provider and closes the D-Bus connection
func (bp *Provider) Close() error {
	obj := bp.conn.Object(bluezService, bp.adapter)
	call := obj.Call(batteryProviderManagerIface+".UnregisterBatteryProvider", 0, dbus.ObjectPath(providerPath))
	closeErr := bp.conn.Close()
	if call.Err != nil {
		return call.Err
	}
	return closeErr
}
