// Package protocol defines the JSON messages of the status feed.
package protocol

import "time"

// WebSocket message type constants
const (
	WSTypeStatus = "status"
	WSTypeLog    = "log"
)

// WebSocketMessage is the generic message envelope for WebSocket communication.
type WebSocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatusPayload reports the worker state.
type StatusPayload struct {
	State   string `json:"state"`             // "waiting", "scanning", "card" or "stopped"
	Running bool   `json:"running"`           // whether the worker is active
	Version string `json:"version,omitempty"` // bridge version
	At      string `json:"at"`                // RFC3339 format
}

// LogPayload carries one log line.
type LogPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	At    string `json:"at"` // RFC3339 format
}

// NewStatusMessage wraps a status payload.
func NewStatusMessage(p StatusPayload) WebSocketMessage {
	return WebSocketMessage{Type: WSTypeStatus, Payload: p}
}

// NewLogMessage wraps a log line.
func NewLogMessage(level, text string, at time.Time) WebSocketMessage {
	return WebSocketMessage{
		Type: WSTypeLog,
		Payload: LogPayload{
			Level: level,
			Text:  text,
			At:    at.Format(time.RFC3339),
		},
	}
}
