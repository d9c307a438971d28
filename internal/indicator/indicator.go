package indicator

import (
	"fmt"
	"os"
	"sync"

	"fyne.io/systray"
	"github.com/rs/zerolog/log"

	"podbeacon/internal/podstate"
)

const searchingTooltip = "Searching for AirPods..."

// Indicator manages the system tray icon and menu
type Indicator struct {
	iconPath     string
	onShowWindow func()
	onQuit       func()

	mu    sync.Mutex
	state *podstate.PodState

	// Menu items, nil until systray is ready
	batteryItems [3]*systray.MenuItem
	inEarItem    *systray.MenuItem
	lidItem      *systray.MenuItem
}

// New creates a new system tray indicator. iconPath may be empty.
func New(iconPath string, onShowWindow, onQuit func()) *Indicator {
	return &Indicator{
		iconPath:     iconPath,
		onShowWindow: onShowWindow,
		onQuit:       onQuit,
	}
}

// Start initializes the system tray indicator
func (ind *Indicator) Start() {
	go systray.Run(ind.onReady, ind.onExit)
}

// Stop terminates the system tray indicator
func (ind *Indicator) Stop() {
	systray.Quit()
}

// onReady is called when systray is ready
func (ind *Indicator) onReady() {
	if ind.iconPath != "" {
		iconData, err := loadIcon(ind.iconPath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load tray icon")
		} else {
			systray.SetIcon(iconData)
		}
	}

	systray.SetTitle("podbeacon")
	systray.SetTooltip(searchingTooltip)

	// Status rows (non-clickable)
	systray.AddMenuItem("Battery Levels", "Current battery status").Disable()
	systray.AddSeparator()

	ind.mu.Lock()
	ind.batteryItems[0] = disabledItem(BatteryTitle("Left", nil, false), "Left bud battery")
	ind.batteryItems[1] = disabledItem(BatteryTitle("Right", nil, false), "Right bud battery")
	ind.batteryItems[2] = disabledItem(BatteryTitle("Case", nil, false), "Case battery")

	systray.AddSeparator()

	ind.inEarItem = disabledItem(InEarTitle(nil), "Which buds are worn")
	ind.lidItem = disabledItem(LidTitle(nil), "Charging case lid")
	ind.apply()
	ind.mu.Unlock()

	systray.AddSeparator()

	// Actions
	mOpen := systray.AddMenuItem("Open podbeacon", "Show the main window")
	mQuit := systray.AddMenuItem("Quit", "Exit podbeacon")

	go func() {
		for {
			select {
			case <-mOpen.ClickedCh:
				if ind.onShowWindow != nil {
					ind.onShowWindow()
				}
			case <-mQuit.ClickedCh:
				if ind.onQuit != nil {
					ind.onQuit()
				}
				return
			}
		}
	}()
}

func disabledItem(title, tooltip string) *systray.MenuItem {
	item := systray.AddMenuItem(title, tooltip)
	item.Disable()
	return item
}

// onExit is called when systray is exiting
func (ind *Indicator) onExit() {
	log.Debug().Msg("system tray indicator exited")
}

// Update refreshes the tooltip and menu rows from s. It is safe to call
// before the tray is ready; the latest state is applied once it is.
func (ind *Indicator) Update(s *podstate.PodState) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	ind.state = s
	ind.apply()
}

// apply must be called with mu held
func (ind *Indicator) apply() {
	s := ind.state
	if s == nil || ind.batteryItems[0] == nil {
		return
	}

	systray.SetTooltip(Tooltip(s))

	ind.batteryItems[0].SetTitle(BatteryTitle("Left", s.LeftBattery, s.LeftCharging))
	ind.batteryItems[1].SetTitle(BatteryTitle("Right", s.RightBattery, s.RightCharging))
	ind.batteryItems[2].SetTitle(BatteryTitle("Case", s.CaseBattery, s.CaseCharging))
	ind.inEarItem.SetTitle(InEarTitle(s))
	ind.lidItem.SetTitle(LidTitle(s))
}

// BatteryTitle formats one battery row, for example "  Left:  80% ⚡".
func BatteryTitle(label string, level *int, charging bool) string {
	name := fmt.Sprintf("%-6s", label+":")
	if level == nil {
		return fmt.Sprintf("  %s --", name)
	}
	mark := ""
	if charging {
		mark = " ⚡"
	}
	return fmt.Sprintf("  %s %d%%%s", name, *level, mark)
}

// Tooltip summarizes the state as model and lowest battery.
func Tooltip(s *podstate.PodState) string {
	if s == nil || !s.HasBatteryData() {
		return searchingTooltip
	}
	return fmt.Sprintf("%s - %d%%", s.Model, s.LowestBattery())
}

// InEarTitle describes which buds are worn.
func InEarTitle(s *podstate.PodState) string {
	if s == nil {
		return "  In ear: --"
	}
	switch {
	case s.LeftInEar && s.RightInEar:
		return "  In ear: both"
	case s.LeftInEar:
		return "  In ear: left"
	case s.RightInEar:
		return "  In ear: right"
	case s.BothInCase:
		return "  In ear: none (in case)"
	default:
		return "  In ear: none"
	}
}

// LidTitle describes the case lid.
func LidTitle(s *podstate.PodState) string {
	switch {
	case s == nil:
		return "  Lid: --"
	case s.LidOpen:
		return "  Lid: open"
	default:
		return "  Lid: closed"
	}
}

// loadIcon loads icon data from a file
func loadIcon(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read icon file: %w", err)
	}
	return data, nil
}
