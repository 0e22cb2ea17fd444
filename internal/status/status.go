// Package status provides a thread-safe status tracker for the rotary-sensor
// daemon. It is read by HTTP handlers and serialized into MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rotary-sensor/encoder"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	ClockPin    int
	DataPin     int
	SwitchPin   int
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	CW       int
	CCW      int
	Pressed  int
	Released int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Position      int64
	Button        encoder.ButtonState
	Counts        EventCounts
	LastEvent     encoder.EventType
	LastEventTime time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordEvent folds one encoder event into the tracked state.
// Called from the daemon loop for every decoded event.
func (t *Tracker) RecordEvent(e encoder.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Position = e.Position
	t.snap.Button = e.Button
	t.snap.LastEvent = e.Type
	t.snap.LastEventTime = e.Timestamp

	switch e.Type {
	case encoder.EventCW:
		t.snap.Counts.CW++
	case encoder.EventCCW:
		t.snap.Counts.CCW++
	case encoder.EventPressed:
		t.snap.Counts.Pressed++
	case encoder.EventReleased:
		t.snap.Counts.Released++
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
