// Command nearest-vehicle caches a vehicle positions file and prints the
// nearest vehicle for each configured query position.
//
// Usage:
//
//	nearest-vehicle [-c config.yaml] [-data VehiclePositions.dat] [-partitions 4]
//
// Without -c the ten built-in sample positions are queried against
// VehiclePositions.dat next to the executable.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/andreiashu/nearestvehicle"
	"github.com/andreiashu/nearestvehicle/internal/config"
)

func main() {
	configFilePath := ""
	dataFile := ""
	partitions := 0
	flag.StringVar(&configFilePath, "c", "", "path to the YAML configuration file")
	flag.StringVar(&dataFile, "data", "", "vehicle positions file (overrides data_file)")
	flag.IntVar(&partitions, "partitions", 0, "number of parallel readers (overrides partitions)")
	flag.Parse()

	settings, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if dataFile != "" {
		settings.DataFile = dataFile
	}
	if partitions != 0 {
		settings.Partitions = partitions
	}

	configureLogging(settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, settings, os.Stdout); err != nil {
		log.Errorf("Unexpected error occurred: %v", err)
		stop()
		os.Exit(1)
	}
}

func getConfig(configFilePath string) (config.Settings, error) {
	if configFilePath == "" {
		return config.Default(), nil
	}
	c, err := config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("parsing %s: %w", configFilePath, err)
	}
	return c, nil
}

func configureLogging(settings config.Settings) {
	log.SetLevel(settings.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stderr)

	if settings.LogFilePath != "" {
		logDir := filepath.Dir(settings.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, 0755); err != nil {
				log.Fatalf("Failed to create log directory: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   settings.LogFilePath,
			MaxSize:    100,
			MaxBackups: 30,
			MaxAge:     settings.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
			log.TraceLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}

// run caches the positions file and writes one line per query to out.
func run(ctx context.Context, settings config.Settings, out io.Writer) error {
	opts, err := settings.FinderOptions()
	if err != nil {
		return err
	}
	metrics := &nearestvehicle.BasicMetricsCollector{}
	opts = append(opts, nearestvehicle.WithLogger(log.StandardLogger()), nearestvehicle.WithMetrics(metrics))

	start := time.Now()
	finder := nearestvehicle.NewFinder(opts...)
	if err := finder.Cache(ctx); err != nil {
		return err
	}
	log.Infof("Vehicle cached count: %d", finder.Len())

	results, err := finder.FindAll(ctx, settings.QueryPositions())
	if err != nil {
		return err
	}
	for _, res := range results {
		fmt.Fprintln(out, formatResult(res, settings.GeohashPrecision))
	}

	log.WithFields(log.Fields{
		"queries":      metrics.FindCount.Load(),
		"mean_latency": metrics.MeanFindLatency(),
		"elapsed":      time.Since(start),
	}).Info("Queries completed")
	return nil
}

func formatResult(res nearestvehicle.Result, geohashPrecision int) string {
	p := res.Position
	if !res.Found() {
		return fmt.Sprintf("No nearest vehicle found for: Position: %d (%v, %v)", p.ID, p.Latitude, p.Longitude)
	}
	v := res.Vehicle
	return fmt.Sprintf("Position: %d (%v, %v) has nearest Vehicle: %d %s %v %v [%s] at Minimum Distance of: %.2f meters",
		p.ID, p.Latitude, p.Longitude,
		v.PositionID, v.Registration, v.Latitude, v.Longitude, v.Geohash(geohashPrecision),
		res.Distance)
}
