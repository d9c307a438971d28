// Package ble provides Bluetooth Low Energy scanning for manufacturer data.
//
// The scanner passively listens for advertisements through the BlueZ D-Bus
// API, so accessories can be observed while they are connected to another
// device (like an iPhone). It never pairs or connects.
//
// The implementation uses BlueZ D-Bus API to:
//   - Set an LE-only discovery filter and start discovery
//   - Subscribe to PropertiesChanged and InterfacesAdded signals
//   - Extract ManufacturerData entries keyed by company ID
//
// Decoding the payloads is left to the caller.
package ble

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"
)

const (
	bluezService     = "org.bluez"
	deviceIface      = "org.bluez.Device1"
	adapterIface     = "org.bluez.Adapter1"
	propertiesSignal = "org.freedesktop.DBus.Properties.PropertiesChanged"
	ifacesAddedSig   = "org.freedesktop.DBus.ObjectManager.InterfacesAdded"
	signalBuffer     = 64
)

// ErrClosed is returned when the D-Bus signal channel is closed underneath
// a running scan.
var ErrClosed = errors.New("ble: signal channel closed")

// Advertisement is one manufacturer data entry seen in an advertisement.
// Data is owned by the receiver.
type Advertisement struct {
	Device    string
	CompanyID uint16
	Data      []byte
	Received  time.Time
}

// Scanner handles BLE advertisement scanning
type Scanner struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	signal  chan *dbus.Signal
}

// NewScanner connects to the system bus for scanning on the given adapter
// (for example "hci0").
func NewScanner(adapter string) (*Scanner, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	return &Scanner{
		conn:    conn,
		adapter: dbus.ObjectPath("/org/bluez/" + adapter),
		signal:  make(chan *dbus.Signal, signalBuffer),
	}, nil
}

// StartDiscovery begins BLE scanning
func (s *Scanner) StartDiscovery() error {
	obj := s.conn.Object(bluezService, s.adapter)

	filter := map[string]interface{}{
		"Transport":     "le",
		"DuplicateData": true,
	}
	if err := obj.Call(adapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		return fmt.Errorf("failed to set discovery filter: %w", err)
	}

	if err := obj.Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}

	rules := []string{
		"type='signal',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path_namespace='/org/bluez'",
		"type='signal',interface='org.freedesktop.DBus.ObjectManager',member='InterfacesAdded'",
	}
	for _, rule := range rules {
		if err := s.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			return fmt.Errorf("failed to add match rule: %w", err)
		}
	}

	s.conn.Signal(s.signal)
	log.Debug().Str("adapter", string(s.adapter)).Msg("BLE discovery started")

	return nil
}

// StopDiscovery stops BLE scanning
func (s *Scanner) StopDiscovery() error {
	obj := s.conn.Object(bluezService, s.adapter)
	return obj.Call(adapterIface+".StopDiscovery", 0).Err
}

// Run forwards every manufacturer data entry to out until ctx is done.
// Entries are dropped rather than blocking when out is full.
func (s *Scanner) Run(ctx context.Context, out chan<- Advertisement) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig, ok := <-s.signal:
			if !ok {
				return ErrClosed
			}
			for _, adv := range Advertisements(sig) {
				select {
				case out <- adv:
				default:
					log.Warn().Str("device", adv.Device).Msg("advertisement queue full, dropping entry")
				}
			}
		}
	}
}

// WaitFor blocks until an advertisement from companyID arrives or ctx is done.
func (s *Scanner) WaitFor(ctx context.Context, companyID uint16) (Advertisement, error) {
	for {
		select {
		case <-ctx.Done():
			return Advertisement{}, ctx.Err()

		case sig, ok := <-s.signal:
			if !ok {
				return Advertisement{}, ErrClosed
			}
			for _, adv := range Advertisements(sig) {
				if adv.CompanyID == companyID {
					return adv, nil
				}
			}
		}
	}
}

// Close closes the scanner
func (s *Scanner) Close() error {
	if err := s.StopDiscovery(); err != nil {
		log.Debug().Err(err).Msg("stop discovery")
	}
	s.conn.RemoveSignal(s.signal)
	return s.conn.Close()
}

// Advertisements extracts the manufacturer data entries carried by a BlueZ
// signal. Signals that are not about a Device1 object yield nothing.
func Advertisements(sig *dbus.Signal) []Advertisement {
	if sig == nil {
		return nil
	}

	var (
		device string
		props  map[string]dbus.Variant
	)

	switch sig.Name {
	case propertiesSignal:
		if len(sig.Body) < 2 {
			return nil
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != deviceIface {
			return nil
		}
		changes, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return nil
		}
		device, props = string(sig.Path), changes

	case ifacesAddedSig:
		if len(sig.Body) < 2 {
			return nil
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return nil
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return nil
		}
		deviceProps, ok := ifaces[deviceIface]
		if !ok {
			return nil
		}
		device, props = string(path), deviceProps

	default:
		return nil
	}

	mfg := ManufacturerData(props)
	if len(mfg) == 0 {
		return nil
	}

	now := time.Now()
	advs := make([]Advertisement, 0, len(mfg))
	for id, data := range mfg {
		advs = append(advs, Advertisement{
			Device:    device,
			CompanyID: id,
			Data:      data,
			Received:  now,
		})
	}
	return advs
}

// ManufacturerData returns copies of the ManufacturerData entries in a
// Device1 property map, keyed by company ID.
func ManufacturerData(props map[string]dbus.Variant) map[uint16][]byte {
	v, ok := props["ManufacturerData"]
	if !ok {
		return nil
	}
	entries, ok := v.Value().(map[uint16]dbus.Variant)
	if !ok {
		return nil
	}

	out := make(map[uint16][]byte, len(entries))
	for id, entry := range entries {
		data, ok := entry.Value().([]byte)
		if !ok {
			continue
		}
		out[id] = append([]byte(nil), data...)
	}
	return out
}
