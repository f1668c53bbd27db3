package models

import (
	"fmt"
	"math"
)

// ProximityLevel is the coarse classification of a distance reading.
type ProximityLevel string

const (
	ProximityNear    ProximityLevel = "near"
	ProximityMedium  ProximityLevel = "medium"
	ProximityFar     ProximityLevel = "far"
	ProximityUnknown ProximityLevel = "unknown"
)

const (
	nearMaxMeters = 0.5
	farMinMeters  = 2.0
)

// Reading sources reported alongside the output.
const (
	sourceDepthSensor = "depth_sensor"
	sourceRaycast     = "raycast"
	sourceStale       = "stale"
)

// OutputState is the published result of one sampling tick. It is overwritten
// wholesale every tick, never merged.
type OutputState struct {
	Display   string
	Level     ProximityLevel
	DistanceM float64
	Source    string
}

// classifyDistance maps a scalar distance in meters to the published output.
// This is the single place display formatting happens; both sampling
// strategies funnel through it.
func classifyDistance(d float64) OutputState {
	if math.IsNaN(d) || d <= 0 {
		return OutputState{Display: "out of range", Level: ProximityUnknown}
	}
	level := ProximityFar
	switch {
	case d < nearMaxMeters:
		level = ProximityNear
	case d < farMinMeters:
		level = ProximityMedium
	}
	return OutputState{
		Display:   fmt.Sprintf("%.2f m (%.0f cm)", d, d*100),
		Level:     level,
		DistanceM: d,
	}
}

func noSessionOutput() OutputState {
	return OutputState{Display: "no session", Level: ProximityUnknown}
}

func noSurfaceOutput() OutputState {
	return OutputState{Display: "no surface detected", Level: ProximityUnknown}
}
