// Package posgen writes synthetic vehicle positions files.
package posgen

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/andreiashu/nearestvehicle"
)

// Options controls the generated records.
type Options struct {
	Count  int       // Number of records
	Seed   int64     // Random seed; equal seeds give equal files
	MinLat float64   // Bounding box of the generated positions
	MaxLat float64
	MinLng float64
	MaxLng float64
	Start  time.Time // Earliest recorded time
	Span   time.Duration
}

// DefaultOptions covers the area of the sample query positions.
func DefaultOptions() Options {
	return Options{
		Count:  100000,
		Seed:   1,
		MinLat: 31.0,
		MaxLat: 36.0,
		MinLng: -103.0,
		MaxLng: -94.0,
		Start:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Span:   24 * time.Hour,
	}
}

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// registration returns 2-4 letters followed by 3-5 digits.
func registration(rng *rand.Rand) string {
	var sb strings.Builder
	for i, n := 0, 2+rng.Intn(3); i < n; i++ {
		sb.WriteByte(letters[rng.Intn(len(letters))])
	}
	for i, n := 0, 3+rng.Intn(3); i < n; i++ {
		sb.WriteByte(byte('0' + rng.Intn(10)))
	}
	return sb.String()
}

// Generate writes opts.Count records to w and calls fn, if not nil, with
// each record written.
func Generate(w io.Writer, opts Options, fn func(nearestvehicle.Vehicle)) error {
	rng := rand.New(rand.NewSource(opts.Seed))
	bw := bufio.NewWriter(w)
	enc := nearestvehicle.NewEncoder(bw, nearestvehicle.RegistrationLatin1)

	span := int64(opts.Span / time.Second)
	for i := 0; i < opts.Count; i++ {
		v := nearestvehicle.Vehicle{
			PositionID:   int32(i + 1),
			Registration: registration(rng),
			Latitude:     float32(opts.MinLat + rng.Float64()*(opts.MaxLat-opts.MinLat)),
			Longitude:    float32(opts.MinLng + rng.Float64()*(opts.MaxLng-opts.MinLng)),
			RecordedAt:   opts.Start,
		}
		if span > 0 {
			v.RecordedAt = opts.Start.Add(time.Duration(rng.Int63n(span)) * time.Second)
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding record %d: %w", v.PositionID, err)
		}
		if fn != nil {
			fn(v)
		}
	}
	return bw.Flush()
}

// Verify caches the positions file at path and checks that it holds count
// records and that a query at each sample finds a vehicle at distance 0.
func Verify(ctx context.Context, path string, count int, samples []nearestvehicle.Vehicle, opts ...nearestvehicle.Option) error {
	opts = append([]nearestvehicle.Option{nearestvehicle.WithDataFile(path)}, opts...)
	f := nearestvehicle.NewFinder(opts...)
	if err := f.Cache(ctx); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	if f.Len() != count {
		return fmt.Errorf("record count mismatch: got %d, want %d", f.Len(), count)
	}

	for _, v := range samples {
		r := f.Find(nearestvehicle.Position{ID: int(v.PositionID), Latitude: float64(v.Latitude), Longitude: float64(v.Longitude)})
		if !r.Found() {
			return fmt.Errorf("find(%v, %v) found no vehicle", v.Latitude, v.Longitude)
		}
		if r.Distance != 0 {
			return fmt.Errorf("find(%v, %v) = %v at %v meters, want distance 0", v.Latitude, v.Longitude, r.Vehicle.PositionID, r.Distance)
		}
	}
	return nil
}

// WriteFile generates a positions file at path. The extension selects the
// compression: .gz, .zst, .lz4 or none.
func WriteFile(path string, opts Options, fn func(nearestvehicle.Vehicle)) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := Generate(w, opts, fn); err != nil {
		w.Close()
		os.Remove(path)
		return err
	}
	return w.Close()
}

// Create opens path for writing, wrapped in the compressor named by its
// extension. Closing the returned writer flushes the compressor and closes
// the file.
func Create(path string) (io.WriteCloser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".bz2" {
		return nil, fmt.Errorf("creating %s: bzip2 output is not supported", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	var zw io.WriteCloser
	switch ext {
	case ".gz":
		zw = gzip.NewWriter(f)
	case ".zst":
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
		zw = enc
	case ".lz4":
		zw = lz4.NewWriter(f)
	default:
		return f, nil
	}
	return &compressedFile{WriteCloser: zw, f: f}, nil
}

type compressedFile struct {
	io.WriteCloser
	f *os.File
}

func (c *compressedFile) Close() error {
	if err := c.WriteCloser.Close(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
