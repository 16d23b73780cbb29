// Package main runs the RFID POS bridge: it reads the UID of cards tapped
// on a PC/SC contactless reader and types it into the focused application,
// the way a magnetic-stripe reader would.
//
// By default the bridge lives in the system tray. With --console it runs in
// the foreground and logs to the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/dotside-studios/rfid-pos-bridge/autostart"
	"github.com/dotside-studios/rfid-pos-bridge/buildinfo"
	"github.com/dotside-studios/rfid-pos-bridge/config"
	"github.com/dotside-studios/rfid-pos-bridge/keyboard"
	"github.com/dotside-studios/rfid-pos-bridge/logging"
	"github.com/dotside-studios/rfid-pos-bridge/nfc"
	"github.com/dotside-studios/rfid-pos-bridge/server"
)

type cliOptions struct {
	console    bool
	configPath string
	logLevel   string
}

func main() {
	var (
		opts        cliOptions
		versionFlag bool
	)
	pflag.BoolVar(&opts.console, "console", false, "Run in the foreground without a tray icon")
	pflag.StringVarP(&opts.configPath, "config", "c", "", "Path to "+config.FileName+" (default: next to the executable)")
	pflag.StringVar(&opts.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	pflag.BoolVar(&versionFlag, "version", false, "Print version information and exit")
	pflag.Parse()

	if versionFlag {
		fmt.Println(buildinfo.BuildInfo())
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", buildinfo.Name, err)
		os.Exit(1)
	}
}

func run(opts cliOptions) error {
	log, _, _ := logging.New(logging.Options{Level: opts.logLevel})

	path := opts.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	} else if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	store := config.NewStore(path, log)
	if created, err := store.EnsureFile(); err != nil {
		log.Warn().Err(err).Msg("Could not create default configuration")
	} else if created {
		log.Info().Msgf("Created default configuration at %s", path)
	}

	cfg, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Invalid configuration, using defaults")
		cfg = store.Current()
	}

	if cfg.LoggingEnabled {
		fileLog, closer, err := logging.New(logging.Options{Level: opts.logLevel, File: cfg.LogFile})
		if err != nil {
			log.Warn().Err(err).Msg("File logging disabled")
		} else {
			defer closer.Close()
			log = fileLog
			store.SetLogger(log)
		}
	}

	log.Info().Str("version", buildinfo.FullVersion()).Str("config", path).Msgf("%s starting", buildinfo.DisplayName)

	kb, err := keyboard.New()
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	defer kb.Close()

	manager := nfc.NewManager()
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		feed    Feed
		feedURL string
	)
	if cfg.Feed.Port > 0 {
		f := server.New(server.Config{
			Port:      cfg.Feed.Port,
			Advertise: cfg.Feed.Advertise,
			Logger:    log,
		})
		if err := f.Start(); err != nil {
			log.Error().Err(err).Msg("Status feed disabled")
		} else {
			feed = f
			urls := server.FeedURLs(cfg.Feed.Port)
			feedURL = urls[len(urls)-1]
			defer stopFeed(f, log)
		}
	}

	agent := NewAgent(AgentOptions{
		Logger:  log,
		Store:   store,
		Manager: manager,
		Sink:    kb,
		Feed:    feed,
	})
	if err := store.Watch(agent.ApplyConfig); err != nil {
		log.Warn().Err(err).Msg("Configuration changes will need a manual reload")
	} else {
		defer store.Close()
	}

	if opts.console {
		return runConsole(ctx, agent)
	}

	NewSystrayApp(ctx, agent, launcherEntry(opts, path), feedURL, log).Run()
	return nil
}

// launcherEntry describes how autostart relaunches this executable.
func launcherEntry(opts cliOptions, configPath string) autostart.Entry {
	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
	}
	e := autostart.Entry{
		Name:        buildinfo.Name,
		DisplayName: buildinfo.DisplayName,
		Exec:        exe,
	}
	if opts.configPath != "" {
		e.Args = []string{"--config", configPath}
	}
	return e
}

func stopFeed(f *server.Feed, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("Status feed shutdown")
	}
}
