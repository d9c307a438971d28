package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/rs/zerolog/log"

	"podbeacon/internal/ble"
	"podbeacon/internal/bluez"
	"podbeacon/internal/config"
	"podbeacon/internal/indicator"
	"podbeacon/internal/logger"
	"podbeacon/internal/podstate"
	"podbeacon/internal/ui"
)

const appID = "org.podbeacon.app"

var (
	app    *adw.Application
	window *ui.Window
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	closeLog, err := logger.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	key, err := cfg.Decrypt.KeyBytes()
	if err != nil {
		log.Error().Err(err).Msg("invalid decrypt config")
		return 1
	}

	// Create centralized pod state coordinator
	// This drains BLE advertisements and notifies all components via callbacks
	scanner, err := ble.NewScanner(cfg.Adapter)
	if err != nil {
		log.Error().Err(err).Msg("failed to create scanner")
		return 1
	}
	defer scanner.Close()

	if err := scanner.StartDiscovery(); err != nil {
		log.Error().Err(err).Str("adapter", cfg.Adapter).Msg("failed to start discovery")
		return 1
	}

	podCoord := podstate.NewCoordinator(scanner, podstate.Options{
		CompanyID: cfg.Scan.CompanyID,
		Key:       key,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := podCoord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("pod state coordinator stopped")
		}
	}()

	// === Create Bluez Provider ===
	if cfg.BatteryProvider.Enabled {
		if provider := createBatteryProvider(cfg.Adapter, podCoord); provider != nil {
			defer provider.Close()
		}
	}

	// === Create System Tray ===
	if cfg.Tray.Enabled {
		tray := createTrayIndicator(cfg.Tray.Icon, podCoord)
		defer tray.Stop()
	}

	// === Create GUI App ===
	app = adw.NewApplication(appID, 0)
	app.ConnectActivate(func() {
		if window != nil {
			window.Present()
			return
		}
		window = ui.Activate(app, podCoord)
	})

	// GTK parses its own arguments; ours are consumed by flag.
	return app.Run(append([]string{os.Args[0]}, flag.Args()...))
}

// createBatteryProvider creates and configures the BlueZ battery provider
func createBatteryProvider(adapter string, podCoord *podstate.Coordinator) *bluez.Provider {
	provider, err := bluez.NewProvider(adapter)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create BlueZ battery provider, battery won't appear in system settings")
		return nil
	}

	if err := provider.WatchConnections(); err != nil {
		log.Warn().Err(err).Msg("failed to watch for device connections")
	}

	// Register a callback to update BlueZ provider when state data changes
	podCoord.RegisterCallback(func(state *podstate.PodState) {
		if err := provider.Publish(state); err != nil && !errors.Is(err, bluez.ErrNoDevice) {
			log.Warn().Err(err).Msg("update BlueZ battery")
		}
	})

	return provider
}

// createTrayIndicator creates and configures the system tray indicator
func createTrayIndicator(iconPath string, podCoord *podstate.Coordinator) *indicator.Indicator {
	tray := indicator.New(iconPath, showWindow, quitApp)
	tray.Start()

	// Register callback to update tray when state data changes
	podCoord.RegisterCallback(tray.Update)

	return tray
}

// showWindow displays the main application window
func showWindow() {
	glib.IdleAdd(func() {
		if window != nil {
			window.Present()
		} else if app != nil {
			app.Activate()
		}
	})
}

// quitApp quits the entire application
func quitApp() {
	if app != nil {
		glib.IdleAdd(func() {
			app.Quit()
		})
	}
}
