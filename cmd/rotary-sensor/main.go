// Command rotary-sensor decodes a KY-040 rotary encoder on GPIO and
// publishes rotation and button events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/rotary-sensor/encoder"
	"github.com/sweeney/rotary-sensor/internal/config"
	"github.com/sweeney/rotary-sensor/internal/mqtt"
	"github.com/sweeney/rotary-sensor/internal/status"
	"github.com/sweeney/rotary-sensor/internal/web"
)

// options is the resolved daemon configuration: flag defaults, overridden
// by the config file, overridden by explicitly set flags.
type options struct {
	chip       string
	clockPin   int
	dataPin    int
	switchPin  int
	debounce   time.Duration
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	printState bool
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	chip := flag.String("chip", "gpiochip0", "GPIO character device name")
	pinClk := flag.Int("pin-clk", encoder.DefaultClockPin, "BCM pin number for the clock (CLK) line")
	pinDt := flag.Int("pin-dt", encoder.DefaultDataPin, "BCM pin number for the data (DT) line")
	pinSw := flag.Int("pin-sw", encoder.DefaultSwitchPin, "BCM pin number for the switch (SW) line")
	debounce := flag.Duration("debounce", encoder.DefaultSwitchDebounce, "Switch settle delay")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current pin levels and exit")

	flag.Parse()

	opts := options{
		chip:       *chip,
		clockPin:   *pinClk,
		dataPin:    *pinDt,
		switchPin:  *pinSw,
		debounce:   *debounce,
		broker:     *broker,
		heartbeat:  *heartbeat,
		httpAddr:   *httpAddr,
		printState: *printState,
	}

	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		applyFileConfig(&opts, fileCfg, setFlags())
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// setFlags returns the names of flags the user set explicitly.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// applyFileConfig fills options from the config file for every value the
// user did not set on the command line. Zero values in the file are
// treated as unset.
func applyFileConfig(opts *options, cfg *config.Config, set map[string]bool) {
	if !set["chip"] && cfg.Chip != "" {
		opts.chip = cfg.Chip
	}
	if !set["pin-clk"] && cfg.ClockPin != 0 {
		opts.clockPin = cfg.ClockPin
	}
	if !set["pin-dt"] && cfg.DataPin != 0 {
		opts.dataPin = cfg.DataPin
	}
	if !set["pin-sw"] && cfg.SwitchPin != 0 {
		opts.switchPin = cfg.SwitchPin
	}
	if !set["debounce"] && cfg.DebounceMs != 0 {
		opts.debounce = cfg.Debounce()
	}
	if !set["broker"] && cfg.Broker != "" {
		opts.broker = cfg.Broker
	}
	if !set["heartbeat"] && cfg.HeartbeatMs != 0 {
		opts.heartbeat = cfg.Heartbeat()
	}
	if !set["http"] && cfg.HTTPAddr != "" {
		opts.httpAddr = cfg.HTTPAddr
	}
}

// sink forwards encoder hooks into the daemon's event channel.
// Hooks run on the GPIO edge delivery goroutine, so the channel send is
// non-blocking: a full queue drops the event rather than stalling edges.
type sink struct {
	mu     sync.Mutex
	drv    *encoder.Driver
	events chan encoder.Event
	now    func() time.Time
}

func newSink(queueSize int) *sink {
	return &sink{
		events: make(chan encoder.Event, queueSize),
		now:    time.Now,
	}
}

// attach hands the sink its driver. Edges arriving before attach (the
// window during driver construction) are dropped.
func (s *sink) attach(d *encoder.Driver) {
	s.mu.Lock()
	s.drv = d
	s.mu.Unlock()
}

func (s *sink) driver() *encoder.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drv
}

func (s *sink) emit(t encoder.EventType) {
	d := s.driver()
	if d == nil {
		return
	}
	ev := encoder.Event{
		Timestamp: s.now(),
		Type:      t,
		Position:  d.Position(),
		Button:    d.Button(),
	}
	select {
	case s.events <- ev:
	default:
		log.Printf("event queue full, dropping %s", t)
	}
}

func (s *sink) HandleRotation(dir encoder.Direction) {
	if dir == encoder.Clockwise {
		s.emit(encoder.EventCW)
	} else {
		s.emit(encoder.EventCCW)
	}
}

func (s *sink) HandlePress()   { s.emit(encoder.EventPressed) }
func (s *sink) HandleRelease() { s.emit(encoder.EventReleased) }

func run(opts options) error {
	snk := newSink(16)

	drv, err := encoder.New(encoder.Config{
		Chip:           opts.chip,
		ClockPin:       opts.clockPin,
		DataPin:        opts.dataPin,
		SwitchPin:      opts.switchPin,
		SwitchDebounce: opts.debounce,
	}, snk)
	if err != nil {
		return fmt.Errorf("init encoder: %w", err)
	}
	defer drv.Close()
	snk.attach(drv)

	// Print state mode
	if opts.printState {
		clk, dt, sw, err := drv.Levels()
		if err != nil {
			return fmt.Errorf("read pins: %w", err)
		}
		fmt.Printf("CLK: %s, DT: %s, SW: %s\n", clk, dt, sw)
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(opts.broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        opts.chip,
		ClockPin:    opts.clockPin,
		DataPin:     opts.dataPin,
		SwitchPin:   opts.switchPin,
		DebounceMs:  opts.debounce.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: chip=%s pins=%d/%d/%d debounce=%v broker=%s heartbeat=%v",
		opts.chip, opts.clockPin, opts.dataPin, opts.switchPin, opts.debounce, opts.broker, opts.heartbeat)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(snk.events, publisher, publisher, tracker, opts.heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(events <-chan encoder.Event, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-events:
			log.Printf("event: %s (position=%d button=%s)", e.Type, e.Position, e.Button)
			if tracker != nil {
				tracker.RecordEvent(e)
			}
			if err := publisher.Publish(e); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}

		case <-tick:
			t := now()
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v position=%d cw=%d ccw=%d pressed=%d",
					snap.Uptime().Truncate(time.Second), snap.Position,
					snap.Counts.CW, snap.Counts.CCW, snap.Counts.Pressed)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
