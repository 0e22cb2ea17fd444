package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/rotary-sensor/encoder"
)

func testConfig() Config {
	return Config{
		Chip:        "gpiochip0",
		ClockPin:    13,
		DataPin:     19,
		SwitchPin:   26,
		DebounceMs:  20,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("start time: got %v, want %v", snap.StartTime, start)
	}
	if snap.Position != 0 {
		t.Errorf("position: got %d, want 0", snap.Position)
	}
	if snap.Button != encoder.Released {
		t.Errorf("button: got %s, want RELEASED", snap.Button)
	}
	if snap.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("config broker: got %s", snap.Config.Broker)
	}
}

func TestRecordEvent(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tr.RecordEvent(encoder.Event{Timestamp: ts, Type: encoder.EventCW, Position: 1})
	tr.RecordEvent(encoder.Event{Timestamp: ts, Type: encoder.EventCW, Position: 2})
	tr.RecordEvent(encoder.Event{Timestamp: ts, Type: encoder.EventCCW, Position: 1})
	tr.RecordEvent(encoder.Event{Timestamp: ts, Type: encoder.EventPressed, Position: 1, Button: encoder.Pressed})

	snap := tr.Snapshot()
	if snap.Position != 1 {
		t.Errorf("position: got %d, want 1", snap.Position)
	}
	if snap.Button != encoder.Pressed {
		t.Errorf("button: got %s, want PRESSED", snap.Button)
	}
	if snap.Counts.CW != 2 {
		t.Errorf("cw count: got %d, want 2", snap.Counts.CW)
	}
	if snap.Counts.CCW != 1 {
		t.Errorf("ccw count: got %d, want 1", snap.Counts.CCW)
	}
	if snap.Counts.Pressed != 1 {
		t.Errorf("pressed count: got %d, want 1", snap.Counts.Pressed)
	}
	if snap.LastEvent != encoder.EventPressed {
		t.Errorf("last event: got %s, want PRESSED", snap.LastEvent)
	}
	if !snap.LastEventTime.Equal(ts) {
		t.Errorf("last event time: got %v, want %v", snap.LastEventTime, ts)
	}
}

func TestRecordEventRelease(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	tr.RecordEvent(encoder.Event{Type: encoder.EventPressed, Button: encoder.Pressed})
	tr.RecordEvent(encoder.Event{Type: encoder.EventReleased, Button: encoder.Released})

	snap := tr.Snapshot()
	if snap.Button != encoder.Released {
		t.Errorf("button: got %s, want RELEASED", snap.Button)
	}
	if snap.Counts.Released != 1 {
		t.Errorf("released count: got %d, want 1", snap.Counts.Released)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	if tr.Snapshot().MQTTConnected {
		t.Error("should start disconnected")
	}

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected connected after SetMQTTConnected(true)")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Now().Add(-90 * time.Second)
	tr := NewTracker(start, testConfig())

	up := tr.Snapshot().Uptime()
	if up < 89*time.Second || up > 91*time.Second {
		t.Errorf("uptime: got %v, want ~90s", up)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())
	snap := tr.Snapshot()

	tr.RecordEvent(encoder.Event{Type: encoder.EventCW, Position: 5})

	// The earlier snapshot must not observe the later event.
	if snap.Position != 0 {
		t.Errorf("snapshot mutated: position %d", snap.Position)
	}
	if snap.Counts.CW != 0 {
		t.Errorf("snapshot mutated: cw count %d", snap.Counts.CW)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())
	tr.RecordEvent(encoder.Event{
		Timestamp: start.Add(time.Minute),
		Type:      encoder.EventCW,
		Position:  3,
	})
	tr.SetMQTTConnected(true)

	data := FormatJSON(tr.Snapshot())

	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if sj.Status.Position != 3 {
		t.Errorf("position: got %d, want 3", sj.Status.Position)
	}
	if sj.Status.Button != "RELEASED" {
		t.Errorf("button: got %s, want RELEASED", sj.Status.Button)
	}
	if sj.Status.LastEvent != "CW" {
		t.Errorf("last event: got %s, want CW", sj.Status.LastEvent)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected mqtt connected")
	}
	if sj.Status.Counts.CW != 1 {
		t.Errorf("cw count: got %d, want 1", sj.Status.Counts.CW)
	}
	if sj.Status.Config.ClockPin != 13 {
		t.Errorf("clock pin: got %d, want 13", sj.Status.Config.ClockPin)
	}
	if sj.Status.Event != "" {
		t.Errorf("web JSON should omit event, got %q", sj.Status.Event)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" {
		t.Errorf("event: got %s, want SHUTDOWN", sj.Status.Event)
	}
	if sj.Status.Reason != "SIGTERM" {
		t.Errorf("reason: got %s, want SIGTERM", sj.Status.Reason)
	}
}

func TestFormatJSONNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())
	tr.SetNetwork(&NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	data := FormatJSON(tr.Snapshot())

	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Network == nil {
		t.Fatal("expected network info")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("ip: got %s", sj.Status.Network.IP)
	}
}

func TestFormatJSONOmitsNetworkWhenAbsent(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	data := FormatJSON(tr.Snapshot())

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	statusObj := parsed["status"].(map[string]interface{})
	if _, exists := statusObj["network"]; exists {
		t.Error("network field should be omitted when absent")
	}
}
