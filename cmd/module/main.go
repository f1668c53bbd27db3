package main

import (
	"github.com/IvanReyhan22/lidar-distance-detection/models"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
)

func main() {
	// ModularMain can take multiple APIModel arguments, if your module implements multiple models.
	module.ModularMain(
		resource.APIModel{API: sensor.API, Model: models.ModelProximitySensor},
		resource.APIModel{API: camera.API, Model: models.ModelCrosshairCamera},
	)
}
