// Command gen-positions writes a synthetic vehicle positions file.
//
// Usage:
//
//	go run ./cmd/gen-positions -o VehiclePositions.dat -n 2000000
//
// The output extension selects compression: .gz, .zst, .lz4 or none. With
// -verify the written file is cached again and spot checked.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andreiashu/nearestvehicle"
	"github.com/andreiashu/nearestvehicle/internal/posgen"
)

// sampleEvery is the spacing of the records checked by -verify.
const sampleEvery = 10000

func main() {
	opts := posgen.DefaultOptions()
	output := ""
	verify := false
	flag.StringVar(&output, "o", "VehiclePositions.dat", "output file")
	flag.IntVar(&opts.Count, "n", opts.Count, "number of records")
	flag.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	flag.Float64Var(&opts.MinLat, "min-lat", opts.MinLat, "minimum latitude")
	flag.Float64Var(&opts.MaxLat, "max-lat", opts.MaxLat, "maximum latitude")
	flag.Float64Var(&opts.MinLng, "min-lng", opts.MinLng, "minimum longitude")
	flag.Float64Var(&opts.MaxLng, "max-lng", opts.MaxLng, "maximum longitude")
	flag.BoolVar(&verify, "verify", false, "cache the written file and check it")
	flag.Parse()

	if opts.Count < 0 {
		fmt.Fprintln(os.Stderr, "Error: -n must not be negative")
		os.Exit(1)
	}

	start := time.Now()
	fmt.Printf("Writing %d positions to %s...\n", opts.Count, output)
	var samples []nearestvehicle.Vehicle
	collect := func(v nearestvehicle.Vehicle) {
		if v.PositionID%sampleEvery == 1 {
			samples = append(samples, v)
		}
	}
	if err := posgen.WriteFile(output, opts, collect); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Done in %s.\n", time.Since(start).Round(time.Millisecond))

	if !verify {
		return
	}
	fmt.Printf("Verifying %s...\n", output)
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	if err := posgen.Verify(context.Background(), output, opts.Count, samples, nearestvehicle.WithLogger(quiet)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: verification failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d records, %d samples OK\n", opts.Count, len(samples))
}
