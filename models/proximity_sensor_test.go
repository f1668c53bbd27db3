package models

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"
)

// waitFor polls cond until it holds or a generous deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func newTestSensor(t *testing.T, opts SimOptions) *proximitySensor {
	t.Helper()
	cfg := &Config{UpdateRateHz: 50.0}
	s, err := NewProximitySensor(context.Background(), sensor.Named("proximity"), cfg, NewSimulatedPlatform(opts), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, s.Close(context.Background()), test.ShouldBeNil) })
	return s.(*proximitySensor)
}

func TestSensorReadingsBeforeStart(t *testing.T) {
	s := newTestSensor(t, SimOptions{SceneDepth: true, WallDistanceM: 1.25})

	readings, err := s.Readings(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings["supported"], test.ShouldBeTrue)
	test.That(t, readings["display"], test.ShouldEqual, "no session")
	test.That(t, readings["proximity"], test.ShouldEqual, string(ProximityUnknown))
}

func TestSensorDepthPathEndToEnd(t *testing.T) {
	s := newTestSensor(t, SimOptions{SceneDepth: true, WallDistanceM: 1.25})
	test.That(t, s.StartSession(), test.ShouldBeNil)

	ctx := context.Background()
	waitFor(t, func() bool {
		readings, err := s.Readings(ctx, nil)
		test.That(t, err, test.ShouldBeNil)
		return readings["proximity"] == string(ProximityMedium)
	})

	readings, err := s.Readings(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings["source"], test.ShouldEqual, sourceDepthSensor)
	test.That(t, readings["distance_m"], test.ShouldAlmostEqual, 1.25, 1e-3)
	test.That(t, readings["display"], test.ShouldEqual, "1.25 m (125 cm)")
}

func TestSensorRaycastPathEndToEnd(t *testing.T) {
	s := newTestSensor(t, SimOptions{
		WallDistanceM: 0.4,
		WallExtentM:   r2.Point{X: 2, Y: 2},
	})
	test.That(t, s.StartSession(), test.ShouldBeNil)

	ctx := context.Background()
	waitFor(t, func() bool {
		readings, err := s.Readings(ctx, nil)
		test.That(t, err, test.ShouldBeNil)
		return readings["proximity"] == string(ProximityNear)
	})

	readings, err := s.Readings(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings["source"], test.ShouldEqual, sourceRaycast)
	test.That(t, readings["distance_m"], test.ShouldAlmostEqual, 0.4, 1e-3)
}

func TestSensorStartStopLifecycle(t *testing.T) {
	s := newTestSensor(t, SimOptions{SceneDepth: true, WallDistanceM: 1.0})

	test.That(t, s.StartSession(), test.ShouldBeNil)
	// starting again while running is a no-op
	test.That(t, s.StartSession(), test.ShouldBeNil)

	ctx := context.Background()
	waitFor(t, func() bool {
		readings, _ := s.Readings(ctx, nil)
		return readings["proximity"] != string(ProximityUnknown)
	})

	s.StopSession()
	readings, err := s.Readings(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings["display"], test.ShouldEqual, "no session")
	// stop is idempotent
	s.StopSession()
}

func TestSensorStartResetsEstimationState(t *testing.T) {
	s := newTestSensor(t, SimOptions{SceneDepth: true, WallDistanceM: 1.0})
	s.smplr.state = estimationState{lastKnownDistanceM: 9.9, consecutiveMisses: 2}

	test.That(t, s.StartSession(), test.ShouldBeNil)

	s.mu.Lock()
	state := s.smplr.state
	s.mu.Unlock()
	test.That(t, state.lastKnownDistanceM, test.ShouldEqual, 0.0)
	test.That(t, state.consecutiveMisses, test.ShouldEqual, 0)
}

func TestSensorUnsupportedDevice(t *testing.T) {
	cfg := &Config{UpdateRateHz: 10.0}
	s, err := NewProximitySensor(context.Background(), sensor.Named("proximity"), cfg, unsupportedPlatform{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer s.Close(context.Background())

	ps := s.(*proximitySensor)
	// start is a no-op, not an error
	test.That(t, ps.StartSession(), test.ShouldBeNil)

	readings, err := s.Readings(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings["supported"], test.ShouldBeFalse)
	test.That(t, readings["display"], test.ShouldEqual, "no session")

	res, err := s.DoCommand(context.Background(), map[string]interface{}{"command": "start"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res["status"], test.ShouldEqual, "unsupported")
}

func TestSensorDoCommand(t *testing.T) {
	s := newTestSensor(t, SimOptions{SceneDepth: true, WallDistanceM: 1.0})
	ctx := context.Background()

	res, err := s.DoCommand(ctx, map[string]interface{}{"command": "start"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res["status"], test.ShouldEqual, "running")

	res, err = s.DoCommand(ctx, map[string]interface{}{"command": "status"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res["supported"], test.ShouldBeTrue)
	test.That(t, res["running"], test.ShouldBeTrue)

	res, err = s.DoCommand(ctx, map[string]interface{}{"command": "stop"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res["status"], test.ShouldEqual, "stopped")

	_, err = s.DoCommand(ctx, map[string]interface{}{"command": "bogus"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	_, _, err := cfg.Validate("components.0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.UpdateRateHz, test.ShouldEqual, defaultUpdateRateHz)

	cfg = &Config{UpdateRateHz: -1}
	_, _, err = cfg.Validate("components.0")
	test.That(t, err, test.ShouldNotBeNil)
}
