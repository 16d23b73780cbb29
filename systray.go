package main

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"fyne.io/systray"
	"github.com/rs/zerolog"

	"github.com/dotside-studios/rfid-pos-bridge/autostart"
	"github.com/dotside-studios/rfid-pos-bridge/bridge"
	"github.com/dotside-studios/rfid-pos-bridge/buildinfo"
)

// statusTitles are the menu captions of each worker state.
var statusTitles = map[bridge.State]string{
	bridge.WaitingForReader: "Waiting for reader",
	bridge.WaitingForCard:   "Ready, tap a card",
	bridge.CardPresent:      "Card on reader",
	bridge.Stopped:          "Stopped",
}

// SystrayApp manages the system tray interface of the bridge.
type SystrayApp struct {
	ctx       context.Context
	agent     *Agent
	autostart autostart.Entry
	feedURL   string
	log       zerolog.Logger

	pumpDone sync.WaitGroup

	// Menu items
	mStatus    *systray.MenuItem
	mStart     *systray.MenuItem
	mStop      *systray.MenuItem
	mReload    *systray.MenuItem
	mAutostart *systray.MenuItem
	mQuit      *systray.MenuItem
}

// NewSystrayApp creates a new systray application. Cancelling ctx closes
// the tray. feedURL is shown in the menu when the status feed runs.
func NewSystrayApp(ctx context.Context, agent *Agent, entry autostart.Entry, feedURL string, log zerolog.Logger) *SystrayApp {
	return &SystrayApp{
		ctx:       ctx,
		agent:     agent,
		autostart: entry,
		feedURL:   feedURL,
		log:       log,
	}
}

// Run starts the systray application and blocks until it exits.
func (s *SystrayApp) Run() {
	go func() {
		<-s.ctx.Done()
		systray.Quit()
	}()
	systray.Run(s.onReady, s.onExit)
}

// onReady is called when the systray is ready
func (s *SystrayApp) onReady() {
	s.setupUI()

	s.pumpDone.Add(1)
	go func() {
		defer s.pumpDone.Done()
		s.agent.Pump(context.Background(), s.updateStatus)
	}()

	s.handleStartAgent()
	go s.handleMenuEvents()
}

// onExit is called when the systray is exiting
func (s *SystrayApp) onExit() {
	s.agent.Quit()
	s.pumpDone.Wait()
}

// setupUI initializes all menu items
func (s *SystrayApp) setupUI() {
	systray.SetIcon(iconDataStopped)
	systray.SetTitle(buildinfo.DisplayName)
	s.setTooltip(bridge.Stopped)

	s.mStatus = systray.AddMenuItem("Starting...", "Bridge status")
	s.mStatus.Disable()

	if s.feedURL != "" {
		mFeed := systray.AddMenuItem("Feed: "+s.feedURL, "Status feed WebSocket URL")
		mFeed.Disable()
	}

	systray.AddSeparator()

	s.mStart = systray.AddMenuItem("Start scanning", "Start reading cards")
	s.mStop = systray.AddMenuItem("Stop scanning", "Stop reading cards")
	s.mStop.Disable()
	s.mReload = systray.AddMenuItem("Reload config", "Re-read "+s.agent.store.Path())

	systray.AddSeparator()

	s.mAutostart = systray.AddMenuItemCheckbox(autostartTitle(), "Launch the bridge when you log in", s.autostart.IsInstalled())

	systray.AddSeparator()

	s.mQuit = systray.AddMenuItem("Exit", "Stop scanning and quit")
}

// handleMenuEvents processes all menu click events
func (s *SystrayApp) handleMenuEvents() {
	for {
		select {
		case <-s.mStart.ClickedCh:
			s.handleStartAgent()
		case <-s.mStop.ClickedCh:
			s.handleStopAgent()
		case <-s.mReload.ClickedCh:
			if err := s.agent.Reload(); err != nil {
				s.log.Debug().Err(err).Msg("reload from tray failed")
			}
		case <-s.mAutostart.ClickedCh:
			s.handleAutostartToggle()
		case <-s.mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// handleStartAgent starts the agent
func (s *SystrayApp) handleStartAgent() {
	if err := s.agent.Start(); err != nil {
		s.log.Error().Err(err).Msg("Failed to start scanning")
		s.mStatus.SetTitle("Failed to start")
		return
	}
	s.mStart.Disable()
	s.mStop.Enable()
}

// handleStopAgent stops the agent
func (s *SystrayApp) handleStopAgent() {
	s.agent.Stop()
	s.mStop.Disable()
	s.mStart.Enable()
}

func (s *SystrayApp) handleAutostartToggle() {
	on, err := s.autostart.Toggle()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to change autostart")
		return
	}
	if on {
		s.mAutostart.Check()
		s.log.Info().Msg("Autostart enabled.")
	} else {
		s.mAutostart.Uncheck()
		s.log.Info().Msg("Autostart disabled.")
	}
}

// updateStatus updates the status menu item, the icon and the tooltip.
func (s *SystrayApp) updateStatus(state bridge.State) {
	s.mStatus.SetTitle(statusTitles[state])
	systray.SetIcon(iconFor(state))
	s.setTooltip(state)
}

func (s *SystrayApp) setTooltip(state bridge.State) {
	systray.SetTooltip(fmt.Sprintf("%s v%s (%s)", buildinfo.DisplayName, buildinfo.FullVersion(), statusTitles[state]))
}

func autostartTitle() string {
	if runtime.GOOS == "windows" {
		return "Start with Windows"
	}
	return "Start at login"
}
