package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	goutils "go.viam.com/utils"
)

var ModelProximitySensor = resource.NewModel("ivanreyhan", "lidar-distance-detection", "proximity-sensor")

const defaultUpdateRateHz = 5.0

func init() {
	resource.RegisterComponent(sensor.API, ModelProximitySensor,
		resource.Registration[sensor.Sensor, *Config]{
			Constructor: newProximitySensor,
		},
	)
}

// defaultPlatform supplies the device tracking capability to sensors built
// from a robot config. A binary with a real AR runtime installs its platform
// before serving; the unsupported stub makes the sensor report itself
// unusable instead of failing construction.
var defaultPlatform Platform = unsupportedPlatform{}

// SetDefaultPlatform installs the tracking platform used by sensors
// constructed through the resource registry. Call it before the module
// starts serving.
func SetDefaultPlatform(p Platform) {
	defaultPlatform = p
}

type unsupportedPlatform struct{}

func (unsupportedPlatform) SupportsWorldTracking() bool       { return false }
func (unsupportedPlatform) SupportsSceneDepth() bool          { return false }
func (unsupportedPlatform) SupportsSceneReconstruction() bool { return false }
func (unsupportedPlatform) VideoFormats() []VideoFormat       { return nil }
func (unsupportedPlatform) NewSession() TrackingSession       { return nil }

// Config configures the proximity sensor.
type Config struct {
	UpdateRateHz  float64 `json:"update_rate_hz"`
	EnableOnStart bool    `json:"enable_on_start"`
}

// Validate ensures all parts of the config are valid and important fields exist.
// Returns implicit required (first return) and optional (second return) dependencies based on the config.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.UpdateRateHz == 0 {
		cfg.UpdateRateHz = defaultUpdateRateHz
	}
	if cfg.UpdateRateHz < 0 {
		return nil, nil, errors.New("update_rate_hz must be greater than 0")
	}
	return nil, nil, nil
}

type proximitySensor struct {
	resource.AlwaysRebuild

	name resource.Name

	logger logging.Logger
	cfg    *Config

	platform Platform
	// supported is decided once at construction and never retried.
	supported bool

	mu         sync.Mutex
	running    bool
	cancelFunc func()
	session    TrackingSession
	smplr      sampler
	output     OutputState
}

func newProximitySensor(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (sensor.Sensor, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}

	return NewProximitySensor(ctx, rawConf.ResourceName(), conf, defaultPlatform, logger)
}

// NewProximitySensor builds a proximity sensor on the given tracking
// platform. The sensor publishes a distance to the nearest surface in front
// of the camera plus a near/medium/far classification, sampled at the
// configured rate while a session is running.
func NewProximitySensor(ctx context.Context, name resource.Name, conf *Config, platform Platform, logger logging.Logger) (sensor.Sensor, error) {
	if conf.UpdateRateHz <= 0 {
		conf.UpdateRateHz = defaultUpdateRateHz
	}

	s := &proximitySensor{
		name:      name,
		logger:    logger,
		cfg:       conf,
		platform:  platform,
		supported: platform.SupportsWorldTracking(),
		output:    noSessionOutput(),
	}
	if !s.supported {
		logger.Warn("device does not support world tracking; proximity readings unavailable")
	}

	if conf.EnableOnStart {
		if err := s.StartSession(); err != nil {
			return nil, fmt.Errorf("failed to start tracking session: %w", err)
		}
	}

	return s, nil
}

func (s *proximitySensor) Name() resource.Name {
	return s.name
}

// StartSession starts one tracking session and the sampling loop. It is a
// no-op on an unsupported device and when a session is already running.
// Callers must not race StartSession and StopSession with each other.
func (s *proximitySensor) StartSession() error {
	if !s.supported {
		s.logger.Warn("start ignored: world tracking unsupported on this device")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	cfg, err := s.sessionConfig()
	if err != nil {
		return err
	}
	session := s.platform.NewSession()
	if err := session.Run(cfg); err != nil {
		return fmt.Errorf("failed to run tracking session: %w", err)
	}

	s.session = session
	// a fresh session discards anchors and tracking state, so a distance
	// held over from a previous session is meaningless
	s.smplr.state.reset()
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel
	interval := time.Duration(float64(time.Second) / s.cfg.UpdateRateHz)
	goutils.PanicCapturingGo(func() { s.samplingLoop(loopCtx, interval) })
	s.running = true
	s.logger.Infof("proximity sampling started, interval %v, format %dx%d", interval, cfg.Format.Width, cfg.Format.Height)
	return nil
}

// StopSession pauses the session and cancels the sampling loop. Safe to call
// repeatedly.
func (s *proximitySensor) StopSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancelFunc()
	s.session.Pause()
	s.session = nil
	s.running = false
	s.output = noSessionOutput()
	s.logger.Info("proximity sampling stopped")
}

// sessionConfig selects the richest configuration the device supports:
// scene reconstruction and scene depth when available, both plane
// alignments, and the best video format on offer.
func (s *proximitySensor) sessionConfig() (SessionConfig, error) {
	format, ok := pickVideoFormat(s.platform.VideoFormats())
	if !ok {
		return SessionConfig{}, errors.New("device offers no video formats")
	}
	return SessionConfig{
		Format:              format,
		SceneReconstruction: s.platform.SupportsSceneReconstruction(),
		SceneDepth:          s.platform.SupportsSceneDepth(),
		PlaneDetection:      PlaneDetection{Horizontal: true, Vertical: true},
		ResetTracking:       true,
		RemoveAnchors:       true,
	}, nil
}

func (s *proximitySensor) samplingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// the loop does not select again until tick returns, so two
			// ticks never overlap; a slow tick fires the next one late
			s.tick()
		}
	}
}

// tick samples the session's latest frame and publishes the output,
// overwriting the previous one wholesale. The lock spans the whole tick so
// status reads never observe a half-updated estimation state.
func (s *proximitySensor) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := noSessionOutput()
	if s.session != nil {
		frame, ok := s.session.CurrentFrame()
		out = s.smplr.sample(frame, ok)
	}
	s.output = out
}

// Readings reports the latest published output. It is safe to call from any
// goroutine at any time; reads observe the most recent completed tick.
func (s *proximitySensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	out := s.output
	s.mu.Unlock()

	readings := map[string]interface{}{
		"supported": s.supported,
		"display":   out.Display,
		"proximity": string(out.Level),
	}
	if out.Level != ProximityUnknown {
		readings["distance_m"] = out.DistanceM
	}
	if out.Source != "" {
		readings["source"] = out.Source
	}
	return readings, nil
}

func (s *proximitySensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	s.logger.Infof("DoCommand: %+v", cmd)
	switch cmd["command"] {
	case "start":
		if err := s.StartSession(); err != nil {
			return nil, err
		}
		if !s.supported {
			return map[string]interface{}{"status": "unsupported"}, nil
		}
		return map[string]interface{}{"status": "running"}, nil
	case "stop":
		s.StopSession()
		return map[string]interface{}{"status": "stopped"}, nil
	case "status":
		s.mu.Lock()
		defer s.mu.Unlock()
		return map[string]interface{}{
			"supported":           s.supported,
			"running":             s.running,
			"display":             s.output.Display,
			"proximity":           string(s.output.Level),
			"consecutive_misses":  s.smplr.state.consecutiveMisses,
			"last_known_distance": s.smplr.state.lastKnownDistanceM,
		}, nil
	default:
		return nil, fmt.Errorf("invalid command: %v", cmd["command"])
	}
}

func (s *proximitySensor) Close(ctx context.Context) error {
	s.StopSession()
	return nil
}
