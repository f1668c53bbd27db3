package models

import (
	"testing"

	"go.viam.com/test"
)

func TestPickVideoFormatPrefersRecommended(t *testing.T) {
	formats := []VideoFormat{
		{Width: 3840, Height: 2160},
		{Width: 1920, Height: 1080, RecommendedHiRes: true},
		{Width: 1280, Height: 720},
	}
	format, ok := pickVideoFormat(formats)
	test.That(t, ok, test.ShouldBeTrue)
	// the recommended format wins even over a larger one
	test.That(t, format, test.ShouldResemble, formats[1])
}

func TestPickVideoFormatLargestArea(t *testing.T) {
	formats := []VideoFormat{
		{Width: 1280, Height: 720},
		{Width: 1920, Height: 1080},
		{Width: 640, Height: 480},
	}
	format, ok := pickVideoFormat(formats)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, format, test.ShouldResemble, formats[1])
}

func TestPickVideoFormatFallsBackToFirst(t *testing.T) {
	formats := []VideoFormat{
		{Width: 640, Height: 480},
		{Width: 640, Height: 480},
	}
	format, ok := pickVideoFormat(formats)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, format, test.ShouldResemble, formats[0])
}

func TestPickVideoFormatEmpty(t *testing.T) {
	_, ok := pickVideoFormat(nil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSimSessionLatestFrameCell(t *testing.T) {
	platform := NewSimulatedPlatform(SimOptions{WallDistanceM: 1.0})
	session := platform.NewSession()

	_, ok := session.CurrentFrame()
	test.That(t, ok, test.ShouldBeFalse)

	err := session.Run(SessionConfig{})
	test.That(t, err, test.ShouldBeNil)
	// starting twice on the same handle is an error
	err = session.Run(SessionConfig{})
	test.That(t, err, test.ShouldNotBeNil)

	waitFor(t, func() bool {
		_, ok := session.CurrentFrame()
		return ok
	})

	session.Pause()
	_, ok = session.CurrentFrame()
	test.That(t, ok, test.ShouldBeFalse)
	// pause is idempotent
	session.Pause()
}

func TestSimSessionHonorsSceneDepthConfig(t *testing.T) {
	platform := NewSimulatedPlatform(SimOptions{SceneDepth: true, WallDistanceM: 1.0})
	test.That(t, platform.SupportsSceneDepth(), test.ShouldBeTrue)

	session := platform.NewSession()
	test.That(t, session.Run(SessionConfig{SceneDepth: false}), test.ShouldBeNil)
	defer session.Pause()

	waitFor(t, func() bool {
		_, ok := session.CurrentFrame()
		return ok
	})
	frame, _ := session.CurrentFrame()
	_, hasDepth := frame.SceneDepth()
	// depth sensing was not enabled in the session config
	test.That(t, hasDepth, test.ShouldBeFalse)
}
