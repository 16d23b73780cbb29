// Package server provides the optional WebSocket status feed of the bridge.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"

	"github.com/dotside-studios/rfid-pos-bridge/buildinfo"
	"github.com/dotside-studios/rfid-pos-bridge/protocol"
)

// mDNS service discovery constants
var (
	MDNSServiceType = "_rfid-bridge._tcp"
	MDNSServiceName = buildinfo.DisplayName
	MDNSDomain      = "local."
)

const writeTimeout = 2 * time.Second

// Config holds the feed configuration.
type Config struct {
	Port      int
	Advertise bool
	Logger    zerolog.Logger
}

type client struct {
	id   string
	conn *websocket.Conn
}

// Feed broadcasts status and log messages to WebSocket clients.
type Feed struct {
	config   Config
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	clients    map[string]*client
	lastStatus *protocol.WebSocketMessage

	httpServer *http.Server
	mdnsServer *zeroconf.Server
	addr       net.Addr
}

// New creates a feed. Nothing listens until Start.
func New(config Config) *Feed {
	return &Feed{
		config: config,
		log:    config.Logger.With().Str("component", "feed").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		clients: make(map[string]*client),
	}
}

// Handler returns the HTTP routes of the feed.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handleWebSocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(buildinfo.DisplayName + " " + buildinfo.FullVersion()))
	})
	return mux
}

// Start listens on the configured port and, if enabled, registers the
// mDNS service.
func (f *Feed) Start() error {
	if f.config.Port <= 0 {
		return errors.New("feed: port not configured")
	}
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(f.config.Port))
	if err != nil {
		return fmt.Errorf("feed: listen: %w", err)
	}

	f.mu.Lock()
	f.addr = ln.Addr()
	f.httpServer = &http.Server{
		Handler:           f.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := f.httpServer
	f.mu.Unlock()

	for _, u := range FeedURLs(f.config.Port) {
		f.log.Info().Msgf("Status feed available at %s", u)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.log.Error().Err(err).Msg("Status feed stopped")
		}
	}()

	if f.config.Advertise {
		if err := f.startMDNS(); err != nil {
			f.log.Warn().Err(err).Msg("Failed to start mDNS service, auto-discovery will not be available")
		}
	}
	return nil
}

// Addr returns the listening address after Start.
func (f *Feed) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr
}

// Stop shuts the feed down and disconnects every client.
func (f *Feed) Stop(ctx context.Context) error {
	f.mu.Lock()
	mdns := f.mdnsServer
	f.mdnsServer = nil
	srv := f.httpServer
	f.httpServer = nil
	f.mu.Unlock()

	if mdns != nil {
		mdns.Shutdown()
		f.log.Debug().Msg("mDNS service stopped")
	}

	f.closeAll()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("feed: shutdown: %w", err)
	}
	return nil
}

func (f *Feed) startMDNS() error {
	txtRecords := []string{
		"version=" + buildinfo.Version,
		"protocol=websocket",
		"path=/ws",
	}

	server, err := zeroconf.Register(MDNSServiceName, MDNSServiceType, MDNSDomain, f.config.Port, txtRecords, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	f.mu.Lock()
	f.mdnsServer = server
	f.mu.Unlock()
	f.log.Info().Str("service", MDNSServiceType).Int("port", f.config.Port).Msg("mDNS service registered")
	return nil
}

// PublishStatus broadcasts a status message and remembers it for clients
// that connect later.
func (f *Feed) PublishStatus(p protocol.StatusPayload) {
	msg := protocol.NewStatusMessage(p)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStatus = &msg
	f.broadcastLocked(msg)
}

// PublishLog broadcasts one log line.
func (f *Feed) PublishLog(level, text string, at time.Time) {
	msg := protocol.NewLogMessage(level, text, at)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcastLocked(msg)
}

// ClientCount returns the number of connected clients.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Feed) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	if !f.register(c) {
		conn.Close()
		return
	}
	f.log.Debug().Str("client", c.id).Str("remote", r.RemoteAddr).Msg("Feed client connected")

	// The feed is one-way; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.unregister(c)
	f.log.Debug().Str("client", c.id).Msg("Feed client disconnected")
}

func (f *Feed) register(c *client) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lastStatus != nil {
		if err := f.write(c, *f.lastStatus); err != nil {
			f.log.Debug().Err(err).Str("client", c.id).Msg("WebSocket write error")
			return false
		}
	}
	f.clients[c.id] = c
	return true
}

func (f *Feed) unregister(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c.id]; ok {
		delete(f.clients, c.id)
		c.conn.Close()
	}
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.clients {
		c.conn.Close()
		delete(f.clients, id)
	}
}

// broadcastLocked sends msg to every client. Clients that fail are dropped.
func (f *Feed) broadcastLocked(msg protocol.WebSocketMessage) {
	for id, c := range f.clients {
		if err := f.write(c, msg); err != nil {
			f.log.Debug().Err(err).Str("client", id).Msg("WebSocket write error")
			c.conn.Close()
			delete(f.clients, id)
		}
	}
}

func (f *Feed) write(c *client, msg protocol.WebSocketMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}
