// Package mqtt publishes panel telemetry, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/panel-link/internal/logic"
)

// DefaultPrefix is the topic root for every panel.
const DefaultPrefix = "installation/panels"

// Topics are the per-panel topics.
type Topics struct {
	// Control carries shared-state change events.
	Control string
	// System carries STARTUP, SHUTDOWN and HEARTBEAT.
	System string
}

// TopicsFor returns the topics of panel p under prefix.
func TopicsFor(prefix string, p logic.Panel) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	base := prefix + "/" + p.String()
	return Topics{
		Control: base + "/control",
		System:  base + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a shared-state change to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Control ControlPayload `json:"control"`
}

// ControlPayload describes one shared-state change.
type ControlPayload struct {
	Timestamp  string   `json:"timestamp"`
	Event      string   `json:"event"`
	State      string   `json:"state"`
	Mode       string   `json:"mode"`
	Perform    bool     `json:"perform"`
	BootupMask uint8    `json:"bootup_mask"`
	Bootup     []string `json:"bootup"`
}

// FormatPayload creates the JSON payload for a control event.
func FormatPayload(event logic.Event) ([]byte, error) {
	s := event.Shared
	payload := Payload{
		Control: ControlPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			State:      s.State.String(),
			Mode:       s.Mode.String(),
			Perform:    s.PerformActivity,
			BootupMask: uint8(s.Bootup),
			Bootup:     s.Bootup.Names(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
