package models

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

const (
	// probeOffset spaces the 3x3 probe grid around image center.
	probeOffset = 0.05
	// minHitDistanceM rejects degenerate self-intersection hits.
	minHitDistanceM = 0.05
	// minForwardCosine keeps hits inside a roughly 40 degree forward cone.
	minForwardCosine = 0.75
	// minPlaneExtentM rejects recognized planes smaller than this on either axis.
	minPlaneExtentM = 0.1
	// offCenterPenalty weights a probe's offset from image center in scoring.
	offCenterPenalty = 0.5
	// maxConsecutiveMisses bounds how long a stale distance is re-emitted.
	maxConsecutiveMisses = 3
)

// estimationState is the only estimation data that survives across ticks.
// Only the ray-cast fallback mutates it.
type estimationState struct {
	lastKnownDistanceM float64 // 0 means no reading yet
	consecutiveMisses  int
}

func (e *estimationState) reset() {
	*e = estimationState{}
}

// probeGrid is the fixed 3x3 grid of normalized image points the fallback
// strategy casts through, in scoring iteration order.
var probeGrid = buildProbeGrid()

func buildProbeGrid() []r2.Point {
	offsets := []float64{-probeOffset, 0, probeOffset}
	pts := make([]r2.Point, 0, 9)
	for _, dx := range offsets {
		for _, dy := range offsets {
			pts = append(pts, r2.Point{X: 0.5 + dx, Y: 0.5 + dy})
		}
	}
	return pts
}

// sampler turns tracking frames into output states. One sampler belongs to
// one sensor and is only ever driven from its sampling loop, so ticks never
// race on the estimation state.
type sampler struct {
	state estimationState
}

// sample runs one sampling tick. Exactly one of the two strategies executes,
// chosen by whether the frame carries a depth buffer; with no frame at all
// the tick short-circuits to the no-session output.
func (sm *sampler) sample(frame Frame, ok bool) OutputState {
	if !ok || frame == nil {
		return noSessionOutput()
	}
	if buf, hasDepth := frame.SceneDepth(); hasDepth {
		out := classifyDistance(centerDepth(buf))
		out.Source = sourceDepthSensor
		sm.state.consecutiveMisses = 0
		return out
	}
	return sm.estimateFromRaycast(frame)
}

// centerDepth reads the depth scalar at the exact center pixel, indexing the
// row through the buffer stride. The buffer stays locked only for the read
// and is unlocked on every path out.
func centerDepth(buf DepthBuffer) float64 {
	buf.Lock()
	defer buf.Unlock()

	w, h := buf.Width(), buf.Height()
	if w <= 0 || h <= 0 {
		return math.NaN()
	}
	offset := (h/2)*buf.BytesPerRow() + (w/2)*4
	data := buf.Bytes()
	if offset < 0 || offset+4 > len(data) {
		return math.NaN()
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[offset:])))
}

// estimateFromRaycast probes the reconstructed environment through the grid
// of image points, scores the surviving hits, and emits the best one. When
// nothing survives it re-emits the last good distance for a bounded number
// of consecutive misses before giving up.
func (sm *sampler) estimateFromRaycast(frame Frame) OutputState {
	camera := frame.CameraPose()
	camPos := camera.Point()
	ov := camera.Orientation().OrientationVectorRadians()
	forward := r3.Vector{X: ov.OX, Y: ov.OY, Z: ov.OZ}

	bestScore := math.Inf(1)
	var bestDist float64
	found := false
	for _, probe := range probeGrid {
		hits := frame.Raycast(probe, TargetEstimatedPlane, AlignmentAny)
		if len(hits) == 0 {
			continue
		}
		// hits are closest-first; only the nearest candidate matters
		hit := hits[0]
		toHit := hit.WorldTransform().Point().Sub(camPos)
		dist := toHit.Norm()
		if dist <= minHitDistanceM {
			continue
		}
		if toHit.Mul(1/dist).Dot(forward) <= minForwardCosine {
			continue
		}
		if extent, isPlane := hit.PlaneExtent(); isPlane {
			// both axes must clear the floor independently
			if extent.X < minPlaneExtentM || extent.Y < minPlaneExtentM {
				continue
			}
		}
		score := dist + offCenterPenalty*(math.Abs(probe.X-0.5)+math.Abs(probe.Y-0.5))
		if score < bestScore {
			bestScore = score
			bestDist = dist
			found = true
		}
	}

	if found {
		sm.state.consecutiveMisses = 0
		sm.state.lastKnownDistanceM = bestDist
		out := classifyDistance(bestDist)
		out.Source = sourceRaycast
		return out
	}

	sm.state.consecutiveMisses++
	if sm.state.consecutiveMisses < maxConsecutiveMisses && sm.state.lastKnownDistanceM > 0 {
		out := classifyDistance(sm.state.lastKnownDistanceM)
		out.Source = sourceStale
		return out
	}
	return noSurfaceOutput()
}
