package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/IvanReyhan22/lidar-distance-detection/models"

	"github.com/golang/geo/r2"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
)

func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	wallDistance := flag.Float64("wall", 1.25, "distance to the simulated wall in meters")
	sceneDepth := flag.Bool("depth", true, "simulate a device with a direct depth sensor")
	samples := flag.Int("samples", 10, "number of readings to print")
	flag.Parse()

	ctx := context.Background()
	logger := logging.NewLogger("cli")

	// run against the simulated platform; on a device the AR runtime's
	// platform is installed via models.SetDefaultPlatform instead
	platform := models.NewSimulatedPlatform(models.SimOptions{
		SceneDepth:    *sceneDepth,
		WallDistanceM: *wallDistance,
		WallExtentM:   r2.Point{X: 2, Y: 2},
	})

	cfg := models.Config{
		UpdateRateHz:  5.0,
		EnableOnStart: true,
	}

	thing, err := models.NewProximitySensor(ctx, sensor.Named("proximity"), &cfg, platform, logger)
	if err != nil {
		return err
	}
	defer thing.Close(ctx)

	for i := 0; i < *samples; i++ {
		time.Sleep(250 * time.Millisecond)
		readings, err := thing.Readings(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Printf("%s  [%s]\n", readings["display"], readings["proximity"])
	}

	return nil
}
