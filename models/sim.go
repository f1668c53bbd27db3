package models

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	goutils "go.viam.com/utils"
)

// SimOptions configures the simulated tracking platform.
type SimOptions struct {
	// SceneDepth gives the simulated device a direct depth sensor, embedding
	// a depth buffer in every frame.
	SceneDepth bool
	// WallDistanceM places a wall this far in front of the camera. Zero means
	// an empty scene.
	WallDistanceM float64
	// WallExtentM is the recognized extent of the wall plane. Zero defaults
	// to 1x1 m.
	WallExtentM r2.Point
	// FrameInterval is the simulated sensor rate. Zero defaults to ~30 fps.
	FrameInterval time.Duration
}

// NewSimulatedPlatform returns a Platform backed by a static simulated
// scene. It stands in for the device AR runtime in tests and offline runs.
func NewSimulatedPlatform(opts SimOptions) Platform {
	if opts.WallExtentM == (r2.Point{}) {
		opts.WallExtentM = r2.Point{X: 1, Y: 1}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 33 * time.Millisecond
	}
	return &simPlatform{opts: opts}
}

type simPlatform struct {
	opts SimOptions
}

func (p *simPlatform) SupportsWorldTracking() bool       { return true }
func (p *simPlatform) SupportsSceneDepth() bool          { return p.opts.SceneDepth }
func (p *simPlatform) SupportsSceneReconstruction() bool { return true }

func (p *simPlatform) VideoFormats() []VideoFormat {
	return []VideoFormat{
		{Width: 1280, Height: 720},
		{Width: 1920, Height: 1080},
		{Width: 3840, Height: 2160, RecommendedHiRes: true},
	}
}

func (p *simPlatform) NewSession() TrackingSession {
	return &simSession{opts: p.opts}
}

// simSession publishes frames into a latest-value cell: a new frame
// overwrites an unread one and readers always see the most recent snapshot,
// matching how a real capture pipeline delivers frames at sensor rate.
type simSession struct {
	opts SimOptions

	mu     sync.Mutex
	stop   context.CancelFunc
	latest Frame
}

func (s *simSession) Run(cfg SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errors.New("session already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	withDepth := cfg.SceneDepth
	goutils.PanicCapturingGo(func() { s.produceFrames(ctx, withDepth) })
	return nil
}

func (s *simSession) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	s.stop()
	s.stop = nil
	s.latest = nil
}

func (s *simSession) CurrentFrame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false
	}
	return s.latest, true
}

func (s *simSession) produceFrames(ctx context.Context, withDepth bool) {
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := s.buildFrame(withDepth)
			s.mu.Lock()
			s.latest = frame
			s.mu.Unlock()
		}
	}
}

func (s *simSession) buildFrame(withDepth bool) Frame {
	f := &simFrame{
		pose:         spatialmath.NewZeroPose(),
		wallDistance: s.opts.WallDistanceM,
		wallExtent:   s.opts.WallExtentM,
	}
	if withDepth {
		f.depth = newSimDepthBuffer(64, 48, float32(s.opts.WallDistanceM))
	}
	return f
}

// simFrame looks straight down the +Z axis at a wall perpendicular to it.
type simFrame struct {
	depth        DepthBuffer
	pose         spatialmath.Pose
	wallDistance float64
	wallExtent   r2.Point
}

func (f *simFrame) SceneDepth() (DepthBuffer, bool) {
	if f.depth == nil {
		return nil, false
	}
	return f.depth, true
}

func (f *simFrame) CameraPose() spatialmath.Pose {
	return f.pose
}

func (f *simFrame) Raycast(pt r2.Point, target RaycastTarget, alignment PlaneAlignment) []RaycastHit {
	if f.wallDistance <= 0 {
		return nil
	}
	// the wall is flat and face-on, so every probe ray lands at the same depth
	hitPoint := f.pose.Point().Add(r3.Vector{Z: f.wallDistance})
	return []RaycastHit{simHit{
		pose:   spatialmath.NewPoseFromPoint(hitPoint),
		extent: f.wallExtent,
	}}
}

type simHit struct {
	pose   spatialmath.Pose
	extent r2.Point
}

func (h simHit) WorldTransform() spatialmath.Pose { return h.pose }

func (h simHit) PlaneExtent() (r2.Point, bool) { return h.extent, true }

// simDepthBuffer pads each row past width*4 bytes the way real pixel buffers
// do, so center reads exercise stride indexing.
type simDepthBuffer struct {
	mu          sync.Mutex
	width       int
	height      int
	bytesPerRow int
	data        []byte
}

func newSimDepthBuffer(w, h int, depth float32) *simDepthBuffer {
	const rowPadding = 64
	b := &simDepthBuffer{
		width:       w,
		height:      h,
		bytesPerRow: w*4 + rowPadding,
	}
	b.data = make([]byte, b.bytesPerRow*h)
	bits := math.Float32bits(depth)
	for y := 0; y < h; y++ {
		row := b.data[y*b.bytesPerRow:]
		for x := 0; x < w; x++ {
			binary.LittleEndian.PutUint32(row[x*4:], bits)
		}
	}
	return b
}

func (b *simDepthBuffer) Lock()            { b.mu.Lock() }
func (b *simDepthBuffer) Unlock()          { b.mu.Unlock() }
func (b *simDepthBuffer) Width() int       { return b.width }
func (b *simDepthBuffer) Height() int      { return b.height }
func (b *simDepthBuffer) BytesPerRow() int { return b.bytesPerRow }
func (b *simDepthBuffer) Bytes() []byte    { return b.data }
