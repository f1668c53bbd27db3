package models

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
)

var ModelCrosshairCamera = resource.NewModel("ivanreyhan", "lidar-distance-detection", "crosshair-camera")

func init() {
	resource.RegisterComponent(camera.API, ModelCrosshairCamera,
		resource.Registration[camera.Camera, *CrosshairCameraConfig]{
			Constructor: newCrosshairCamera,
		},
	)
}

// CrosshairCameraConfig wires the overlay camera to its image source and to
// the proximity sensor whose classification colors the crosshair.
type CrosshairCameraConfig struct {
	resource.TriviallyValidateConfig
	CameraName          string `json:"camera_name"`
	ProximitySensorName string `json:"proximity_sensor_name"`
}

// Validate ensures all parts of the config are valid and important fields exist.
// Returns implicit dependencies based on the config.
func (cfg *CrosshairCameraConfig) Validate(path string) ([]string, []string, error) {
	if cfg.CameraName == "" {
		return nil, nil, errors.New("camera_name is required")
	}
	if cfg.ProximitySensorName == "" {
		return nil, nil, errors.New("proximity_sensor_name is required")
	}
	return []string{cfg.CameraName, cfg.ProximitySensorName}, nil, nil
}

type crosshairCamera struct {
	resource.TriviallyCloseable
	resource.TriviallyReconfigurable
	name          resource.Name
	logger        logging.Logger
	cfg           *CrosshairCameraConfig
	underlyingCam camera.Camera
	proximity     sensor.Sensor
}

func newCrosshairCamera(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (camera.Camera, error) {
	conf, err := resource.NativeConfig[*CrosshairCameraConfig](rawConf)
	if err != nil {
		return nil, err
	}

	cam, err := camera.FromDependencies(deps, conf.CameraName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get camera %q", conf.CameraName)
	}
	proximity, err := sensor.FromDependencies(deps, conf.ProximitySensorName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get proximity sensor %q", conf.ProximitySensorName)
	}

	return &crosshairCamera{
		name:          rawConf.ResourceName(),
		logger:        logger,
		cfg:           conf,
		underlyingCam: cam,
		proximity:     proximity,
	}, nil
}

func (s *crosshairCamera) Name() resource.Name {
	return s.name
}

func (s *crosshairCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// crosshairColor maps the sensor's current proximity level to the overlay
// color. Any read failure falls back to the unknown gray.
func (s *crosshairCamera) crosshairColor(ctx context.Context) color.RGBA {
	readings, err := s.proximity.Readings(ctx, nil)
	if err != nil {
		s.logger.Debugf("failed to read proximity sensor: %v", err)
		return proximityColor(ProximityUnknown)
	}
	level, _ := readings["proximity"].(string)
	return proximityColor(ProximityLevel(level))
}

func proximityColor(level ProximityLevel) color.RGBA {
	switch level {
	case ProximityNear:
		return color.RGBA{R: 255, A: 255}
	case ProximityMedium:
		return color.RGBA{R: 255, G: 200, A: 255}
	case ProximityFar:
		return color.RGBA{G: 200, A: 255}
	default:
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	}
}

// drawCrosshair draws a centered crosshair in the given color.
func drawCrosshair(img image.Image, c color.RGBA) image.Image {
	bounds := img.Bounds()
	centerX := bounds.Dx() / 2
	centerY := bounds.Dy() / 2

	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	size := 60
	thick := 8

	for x := centerX - size; x <= centerX+size; x++ {
		for dy := -thick / 2; dy <= thick/2; dy++ {
			if x >= 0 && x < bounds.Dx() && centerY+dy >= 0 && centerY+dy < bounds.Dy() {
				rgba.Set(x, centerY+dy, c)
			}
		}
	}
	for y := centerY - size; y <= centerY+size; y++ {
		for dx := -thick / 2; dx <= thick/2; dx++ {
			if y >= 0 && y < bounds.Dy() && centerX+dx >= 0 && centerX+dx < bounds.Dx() {
				rgba.Set(centerX+dx, y, c)
			}
		}
	}

	return rgba
}

func (s *crosshairCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return nil, camera.ImageMetadata{}, errors.New("single image retrieval not implemented; use Images() instead")
}

func (s *crosshairCamera) Images(ctx context.Context, mimeTypes []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	imgs, meta, err := s.underlyingCam.Images(ctx, mimeTypes, extra)
	if err != nil {
		return nil, resource.ResponseMetadata{}, err
	}

	overlay := s.crosshairColor(ctx)

	resultImgs := make([]camera.NamedImage, len(imgs))
	for i, namedImg := range imgs {
		img, err := namedImg.Image(ctx)
		if err != nil {
			return nil, resource.ResponseMetadata{}, err
		}

		resultImg, err := camera.NamedImageFromImage(drawCrosshair(img, overlay), namedImg.SourceName, namedImg.MimeType())
		if err != nil {
			return nil, resource.ResponseMetadata{}, err
		}
		resultImgs[i] = resultImg
	}

	return resultImgs, meta, nil
}

func (s *crosshairCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	return s.underlyingCam.NextPointCloud(ctx, extra)
}

func (s *crosshairCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return s.underlyingCam.Properties(ctx)
}

func (s *crosshairCamera) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return s.underlyingCam.Geometries(ctx, extra)
}
