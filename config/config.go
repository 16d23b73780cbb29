// Package config holds the bridge's formatting and behaviour settings and the
// INI-backed store they are loaded from.
package config

import (
	"time"
)

// FileName is the configuration file looked up next to the executable.
const FileName = "rfid_bridge.ini"

// FeedConfig controls the optional WebSocket status feed.
type FeedConfig struct {
	// Port is the TCP port of the feed. Zero disables it.
	Port int
	// Advertise registers the feed over mDNS.
	Advertise bool
}

// Config is an immutable snapshot of the bridge settings. A reload produces a
// new value; a Config is never mutated once handed to the worker.
type Config struct {
	Prefix         string
	Suffix         string
	SendSemicolon  bool
	SendEnter      bool
	TypingInterval time.Duration
	ChromisMode    bool
	StartupDelay   time.Duration
	LoggingEnabled bool
	LogFile        string
	// NFCTagMode is read from the file but no code path consults it.
	NFCTagMode bool
	Feed       FeedConfig
}

// Default returns the settings used for keys missing from the file.
func Default() Config {
	return Config{
		SendEnter:      true,
		TypingInterval: 10 * time.Millisecond,
		ChromisMode:    true,
		StartupDelay:   5 * time.Second,
		LoggingEnabled: true,
		LogFile:        "rfid_bridge.log",
	}.Normalized()
}

// Normalized returns c with the Chromis framing applied: no leading
// semicolon and a trailing Enter, whatever the stored values say.
func (c Config) Normalized() Config {
	if c.ChromisMode {
		c.SendSemicolon = false
		c.SendEnter = true
	}
	return c
}

// DefaultFile is written when no configuration file exists yet.
const DefaultFile = `[POS]
prefix = 1995
suffix = ?
send_semicolon = no
send_enter = yes
typing_interval = 0.01
chromis_mode = yes
logging_enabled = yes
log_file = rfid_bridge.log
startup_delay = 5.0
nfc_tag_mode = no

[feed]
port = 0
advertise = no
`
