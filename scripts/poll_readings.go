package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/erh/vmodutils"
	"github.com/joho/godotenv"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
)

// Polls a deployed proximity sensor and prints its readings. Machine address
// and credentials come from the environment (VIAM_MACHINE_ADDRESS etc.),
// optionally loaded from a .env file.
func main() {
	envFile := flag.String("env", "", "path to a .env file with machine credentials")
	sensorName := flag.String("sensor", "proximity", "name of the proximity sensor on the machine")
	interval := flag.Duration("interval", time.Second, "time between polls")
	flag.Parse()

	logger := logging.NewLogger("poll-readings")

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			logger.Fatalf("error loading %s: %v", *envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Info(".env file not found, using system environment variables")
	}

	ctx := context.Background()

	machine, err := vmodutils.ConnectToMachineFromEnv(ctx, logger)
	if err != nil {
		logger.Fatalf("failed to connect to machine: %v", err)
	}
	defer machine.Close(ctx)

	proximity, err := sensor.FromRobot(machine, *sensorName)
	if err != nil {
		logger.Fatalf("failed to get sensor %q: %v", *sensorName, err)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		readings, err := proximity.Readings(ctx, nil)
		if err != nil {
			logger.Errorf("failed to read sensor: %v", err)
			continue
		}
		fmt.Printf("%v  proximity=%v", readings["display"], readings["proximity"])
		if d, ok := readings["distance_m"]; ok {
			fmt.Printf("  distance_m=%.3f", d)
		}
		if src, ok := readings["source"]; ok {
			fmt.Printf("  source=%v", src)
		}
		fmt.Println()
	}
}
