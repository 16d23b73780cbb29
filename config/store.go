package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Store loads Config values from an INI file through viper.
type Store struct {
	v    *viper.Viper
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	current Config
	watcher *fsnotify.Watcher
}

// DefaultPath returns the configuration path next to the running executable.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), FileName), nil
}

// NewStore creates a store for the file at path.
func NewStore(path string, log zerolog.Logger) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	v.SetDefault("pos.prefix", "")
	v.SetDefault("pos.suffix", "")
	v.SetDefault("pos.send_semicolon", "no")
	v.SetDefault("pos.send_enter", "yes")
	v.SetDefault("pos.typing_interval", 0.01)
	v.SetDefault("pos.chromis_mode", "yes")
	v.SetDefault("pos.logging_enabled", "yes")
	v.SetDefault("pos.log_file", "rfid_bridge.log")
	v.SetDefault("pos.startup_delay", 5.0)
	v.SetDefault("pos.nfc_tag_mode", "no")
	v.SetDefault("feed.port", 0)
	v.SetDefault("feed.advertise", "no")

	return &Store{
		v:       v,
		path:    path,
		log:     log,
		current: Default(),
	}
}

// SetLogger replaces the logger. Call it before Watch.
func (s *Store) SetLogger(log zerolog.Logger) {
	s.log = log
}

// Path returns the file the store reads.
func (s *Store) Path() string {
	return s.path
}

// EnsureFile writes DefaultFile if the configuration file does not exist.
func (s *Store) EnsureFile() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(DefaultFile), 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// Load reads the file, creating it with defaults first if it is missing.
// On error the previously loaded Config stays current.
func (s *Store) Load() (Config, error) {
	created, err := s.EnsureFile()
	if err != nil {
		return s.Current(), err
	}
	if created {
		s.log.Info().Str("path", s.path).Msg("created default config")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		return s.current, fmt.Errorf("read config %s: %w", s.path, err)
	}
	cfg, err := s.decode()
	if err != nil {
		return s.current, err
	}
	s.current = cfg
	return cfg, nil
}

// Current returns the last successfully loaded Config.
func (s *Store) Current() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Watch calls fn with the new Config every time the file changes on disk.
// Changes that fail to parse are logged and skipped. Every re-read goes
// through Load, so it is serialized with Load calls from other goroutines.
func (s *Store) Watch(fn func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.watcher = watcher
	s.mu.Unlock()

	go s.watch(watcher, fn)
	return nil
}

func (s *Store) watch(watcher *fsnotify.Watcher, fn func(Config)) {
	target := filepath.Clean(s.path)
	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != target || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.log.Info().Msgf("Config file changed: %v", e.Name)

			cfg, err := s.Load()
			if err != nil {
				s.log.Error().Err(err).Msg("ignoring invalid config change")
				continue
			}
			fn(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Close stops watching the file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Store) decode() (Config, error) {
	var (
		cfg  Config
		errs []error
	)

	boolKey := func(key string) bool {
		b, err := parseBool(s.v.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return b
	}
	secondsKey := func(key string) time.Duration {
		f, err := strconv.ParseFloat(strings.TrimSpace(s.v.GetString(key)), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: not a number of seconds: %q", key, s.v.GetString(key)))
			return 0
		}
		if f < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", key))
			return 0
		}
		return time.Duration(f * float64(time.Second))
	}

	cfg.Prefix = s.v.GetString("pos.prefix")
	cfg.Suffix = s.v.GetString("pos.suffix")
	cfg.SendSemicolon = boolKey("pos.send_semicolon")
	cfg.SendEnter = boolKey("pos.send_enter")
	cfg.TypingInterval = secondsKey("pos.typing_interval")
	cfg.ChromisMode = boolKey("pos.chromis_mode")
	cfg.StartupDelay = secondsKey("pos.startup_delay")
	cfg.LoggingEnabled = boolKey("pos.logging_enabled")
	cfg.LogFile = s.resolve(s.v.GetString("pos.log_file"))
	cfg.NFCTagMode = boolKey("pos.nfc_tag_mode")
	cfg.Feed.Port = s.v.GetInt("feed.port")
	cfg.Feed.Advertise = boolKey("feed.advertise")

	if cfg.Feed.Port < 0 || cfg.Feed.Port > 65535 {
		errs = append(errs, fmt.Errorf("feed.port: %d out of range", cfg.Feed.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", s.path, err)
	}
	return cfg.Normalized(), nil
}

// resolve makes a relative log path relative to the config file.
func (s *Store) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(s.path), p)
}

// parseBool accepts the spellings INI users write for booleans, in any case.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "on", "1":
		return true, nil
	case "no", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", v)
}
