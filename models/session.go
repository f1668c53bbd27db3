package models

import (
	"github.com/golang/geo/r2"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/floats"
)

// PlaneAlignment filters which recognized planes a ray-cast may resolve against.
type PlaneAlignment int

const (
	AlignmentAny PlaneAlignment = iota
	AlignmentHorizontal
	AlignmentVertical
)

// RaycastTarget selects the kind of geometry a ray-cast is resolved against.
type RaycastTarget int

const (
	// TargetEstimatedPlane resolves against planar surfaces the tracker has
	// inferred, whether or not a recognized anchor backs them yet.
	TargetEstimatedPlane RaycastTarget = iota
	// TargetExistingPlane resolves only against fully recognized plane anchors.
	TargetExistingPlane
)

// VideoFormat describes one capture format the device camera offers.
type VideoFormat struct {
	Width  int
	Height int
	// RecommendedHiRes marks the format the platform designates for
	// high-resolution capture, when it designates one.
	RecommendedHiRes bool
}

func (f VideoFormat) pixelArea() float64 {
	return float64(f.Width) * float64(f.Height)
}

// PlaneDetection selects which plane alignments the session detects.
type PlaneDetection struct {
	Horizontal bool
	Vertical   bool
}

// SessionConfig is the configuration a tracking session is started with.
type SessionConfig struct {
	Format              VideoFormat
	SceneReconstruction bool
	SceneDepth          bool
	PlaneDetection      PlaneDetection
	// ResetTracking and RemoveAnchors discard state from any prior run when
	// the session starts.
	ResetTracking bool
	RemoveAnchors bool
}

// DepthBuffer is a dense row-major grid of float32 distances in meters. The
// backing bytes are valid only between Lock and Unlock. BytesPerRow may
// exceed Width*4 due to padding, so rows must be indexed through it.
type DepthBuffer interface {
	Lock()
	Unlock()
	Width() int
	Height() int
	BytesPerRow() int
	// Bytes returns the buffer's base address. Callers must hold the lock.
	Bytes() []byte
}

// RaycastHit is one candidate surface returned by a frame ray-cast.
type RaycastHit interface {
	// WorldTransform is the pose of the hit point on the surface, in world space.
	WorldTransform() spatialmath.Pose
	// PlaneExtent reports the measured extent of the recognized plane the hit
	// landed on. ok is false when the surface is not a recognized plane, in
	// which case no size filtering applies to the hit.
	PlaneExtent() (extent r2.Point, ok bool)
}

// Frame is an immutable snapshot of the session's camera state. A frame must
// not be retained past the sampling tick that read it.
type Frame interface {
	// SceneDepth returns the frame's depth buffer when the device captured one.
	SceneDepth() (DepthBuffer, bool)
	// CameraPose is the camera's world transform. Its orientation vector
	// points along the viewing axis.
	CameraPose() spatialmath.Pose
	// Raycast resolves a ray through the given normalized image point
	// (0,0 top-left, 1,1 bottom-right) against the reconstructed environment
	// and returns candidate hits closest-first.
	Raycast(pt r2.Point, target RaycastTarget, alignment PlaneAlignment) []RaycastHit
}

// TrackingSession is one live capture and pose-estimation run. At most one
// session is active per sensor; the sensor owns its lifecycle.
type TrackingSession interface {
	Run(cfg SessionConfig) error
	Pause()
	// CurrentFrame returns the latest frame snapshot, or false when the
	// session has not produced one yet.
	CurrentFrame() (Frame, bool)
}

// Platform is the device tracking capability the proximity sensor is built
// on. Implementations wrap the actual AR runtime; the simulated platform
// stands in for it off-device.
type Platform interface {
	SupportsWorldTracking() bool
	SupportsSceneDepth() bool
	SupportsSceneReconstruction() bool
	VideoFormats() []VideoFormat
	NewSession() TrackingSession
}

// pickVideoFormat prefers the platform-recommended high-resolution format,
// then the format with the largest pixel area, then the first offered.
func pickVideoFormat(formats []VideoFormat) (VideoFormat, bool) {
	if len(formats) == 0 {
		return VideoFormat{}, false
	}
	for _, f := range formats {
		if f.RecommendedHiRes {
			return f, true
		}
	}
	areas := make([]float64, len(formats))
	for i, f := range formats {
		areas[i] = f.pixelArea()
	}
	return formats[floats.MaxIdx(areas)], true
}
