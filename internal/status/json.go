package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/panel-link/internal/control"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Role          string        `json:"role"`
	Panel         string        `json:"panel"`
	State         string        `json:"state"`
	Mode          string        `json:"mode"`
	Activity      bool          `json:"activity"`
	Perform       bool          `json:"perform"`
	BootupMask    uint8         `json:"bootup_mask"`
	Bootup        []string      `json:"bootup"`
	Ready         bool          `json:"ready"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Link          control.Stats `json:"link"`
	Counts        CountsJSON    `json:"event_counts"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	State   int `json:"state"`
	Mode    int `json:"mode"`
	Bootup  int `json:"bootup"`
	Perform int `json:"perform"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Layout            string `json:"layout"`
	SerialPort        string `json:"serial_port"`
	Baud              int    `json:"baud"`
	PollMs            int64  `json:"poll_ms"`
	SendIntervalMs    int64  `json:"send_interval_ms"`
	ActivityTimeoutMs int64  `json:"activity_timeout_ms"`
	HeartbeatMs       int64  `json:"heartbeat_ms"`
	Broker            string `json:"broker"`
	HTTPAddr          string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	s := snap.Shared
	return StatusInner{
		Role:          snap.Config.Role,
		Panel:         snap.Config.Panel,
		State:         s.State.String(),
		Mode:          s.Mode.String(),
		Activity:      s.Activity,
		Perform:       s.PerformActivity,
		BootupMask:    uint8(s.Bootup),
		Bootup:        s.Bootup.Names(),
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Link:          snap.Link,
		Counts: CountsJSON{
			State:   snap.Counts.State,
			Mode:    snap.Counts.Mode,
			Bootup:  snap.Counts.Bootup,
			Perform: snap.Counts.Perform,
		},
		Config: ConfigJSON{
			Layout:            snap.Config.Layout,
			SerialPort:        snap.Config.SerialPort,
			Baud:              snap.Config.Baud,
			PollMs:            snap.Config.PollMs,
			SendIntervalMs:    snap.Config.SendIntervalMs,
			ActivityTimeoutMs: snap.Config.ActivityTimeoutMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			Broker:            snap.Config.Broker,
			HTTPAddr:          snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
