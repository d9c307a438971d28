package ui

import (
	"fmt"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"podbeacon/internal/podstate"
	"podbeacon/internal/proximity"
)

const version = "0.1.0"

// Window shows the live pod state
type Window struct {
	*adw.ApplicationWindow

	levels [3]*gtk.LevelBar
	labels [3]*gtk.Label

	modelRow   *adw.ActionRow
	colorRow   *adw.ActionRow
	inEarRow   *adw.ActionRow
	lidRow     *adw.ActionRow
	primaryRow *adw.ActionRow
	sourceRow  *adw.ActionRow
}

// Activate builds and presents the main window and subscribes it to coordinator updates.
func Activate(app *adw.Application, coord *podstate.Coordinator) *Window {
	win := &Window{ApplicationWindow: adw.NewApplicationWindow(&app.Application)}
	win.SetTitle("podbeacon")
	win.SetDefaultSize(400, 500)

	win.setupUI()
	win.Present()

	coord.RegisterCallback(func(s *podstate.PodState) {
		glib.IdleAdd(func() {
			win.Update(s)
		})
	})

	return win
}

func (w *Window) setupUI() {
	headerBar := adw.NewHeaderBar()

	viewStack := adw.NewViewStack()

	viewSwitcher := adw.NewViewSwitcher()
	viewSwitcher.SetStack(viewStack)
	viewSwitcher.SetPolicy(adw.ViewSwitcherPolicyWide)
	headerBar.SetTitleWidget(viewSwitcher)

	viewStack.AddTitledWithIcon(w.createStatusView(), "status", "Status", "audio-headphones-symbolic")
	viewStack.AddTitledWithIcon(createAboutView(), "about", "About", "help-about-symbolic")

	// Use ToolbarView for seamless GNOME design (no visual separation)
	toolbarView := adw.NewToolbarView()
	toolbarView.AddTopBar(headerBar)
	toolbarView.SetContent(viewStack)

	w.SetContent(toolbarView)
}

func (w *Window) createStatusView() *gtk.Box {
	statusBox := gtk.NewBox(gtk.OrientationVertical, 20)
	statusBox.SetMarginTop(20)
	statusBox.SetMarginBottom(20)
	statusBox.SetMarginStart(20)
	statusBox.SetMarginEnd(20)

	// Battery columns for left, right, and case
	batteryBox := gtk.NewBox(gtk.OrientationHorizontal, 20)
	batteryBox.SetHAlign(gtk.AlignCenter)
	batteryBox.SetVAlign(gtk.AlignStart)

	for i, title := range []string{"Left", "Right", "Case"} {
		columnBox := gtk.NewBox(gtk.OrientationVertical, 10)
		columnBox.SetHAlign(gtk.AlignCenter)

		columnBox.Append(gtk.NewLabel(title))

		w.levels[i] = gtk.NewLevelBar()
		w.levels[i].SetMode(gtk.LevelBarModeContinuous)
		w.levels[i].SetSizeRequest(100, 20)
		columnBox.Append(w.levels[i])

		w.labels[i] = gtk.NewLabel(percentText(nil, false))
		w.labels[i].AddCSSClass("dim-label")
		columnBox.Append(w.labels[i])

		batteryBox.Append(columnBox)
	}
	statusBox.Append(batteryBox)

	statusGroup := adw.NewPreferencesGroup()
	statusGroup.SetTitle("Status")
	statusGroup.SetDescription("Decoded from the accessory's advertisement")

	row := func(title string) *adw.ActionRow {
		r := adw.NewActionRow()
		r.SetTitle(title)
		r.SetSubtitle("--")
		statusGroup.Add(r)
		return r
	}
	w.modelRow = row("Model")
	w.colorRow = row("Color")
	w.inEarRow = row("In Ear")
	w.lidRow = row("Case Lid")
	w.primaryRow = row("Broadcasting Bud")
	w.sourceRow = row("Battery Source")

	statusBox.Append(statusGroup)
	return statusBox
}

func createAboutView() *gtk.Box {
	aboutBox := gtk.NewBox(gtk.OrientationVertical, 20)
	aboutBox.SetMarginTop(20)
	aboutBox.SetMarginBottom(20)
	aboutBox.SetMarginStart(20)
	aboutBox.SetMarginEnd(20)

	aboutGroup := adw.NewPreferencesGroup()
	aboutGroup.SetTitle("About")

	aboutRow := adw.NewActionRow()
	aboutRow.SetTitle("podbeacon")
	aboutRow.SetSubtitle("Version " + version)
	aboutGroup.Add(aboutRow)

	privacyRow := adw.NewActionRow()
	privacyRow.SetTitle("Passive scanning")
	privacyRow.SetSubtitle("Reads broadcast advertisements only; never pairs or connects")
	aboutGroup.Add(privacyRow)

	aboutBox.Append(aboutGroup)
	return aboutBox
}

// Update refreshes all widgets. It must run on the GTK main loop.
func (w *Window) Update(s *podstate.PodState) {
	batteries := [3]*int{s.LeftBattery, s.RightBattery, s.CaseBattery}
	charging := [3]bool{s.LeftCharging, s.RightCharging, s.CaseCharging}
	for i := range batteries {
		w.levels[i].SetValue(levelFraction(batteries[i]))
		w.labels[i].SetText(percentText(batteries[i], charging[i]))
	}

	w.modelRow.SetSubtitle(s.Model.String())
	w.colorRow.SetSubtitle(s.Color.String())
	w.inEarRow.SetSubtitle(inEarText(s))
	w.lidRow.SetSubtitle(lidText(s))
	w.primaryRow.SetSubtitle(s.PrimaryPod.String())
	w.sourceRow.SetSubtitle(s.Source.String())
}

func levelFraction(level *int) float64 {
	if level == nil {
		return 0
	}
	return float64(*level) / 100
}

func percentText(level *int, charging bool) string {
	if level == nil {
		return "--"
	}
	if charging {
		return fmt.Sprintf("%d%% (charging)", *level)
	}
	return fmt.Sprintf("%d%%", *level)
}

func inEarText(s *podstate.PodState) string {
	switch {
	case s.LeftInEar && s.RightInEar:
		return "Both"
	case s.LeftInEar:
		return proximity.SideLeft.String()
	case s.RightInEar:
		return proximity.SideRight.String()
	default:
		return "None"
	}
}

func lidText(s *podstate.PodState) string {
	if s.LidOpen {
		return "Open"
	}
	return "Closed"
}
