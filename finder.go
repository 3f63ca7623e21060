package nearestvehicle

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Finder caches the vehicles of a positions file and answers nearest-vehicle
// queries. Safe for concurrent use; queries only see vehicles once Cache has
// returned.
type Finder struct {
	config *Config
	cache  *VehicleCache

	once   sync.Once
	err    error
	cached atomic.Bool
}

// NewFinder creates a Finder. No data is read until Cache is called.
//
//	f := NewFinder(WithDataFile("/data/VehiclePositions.dat"), WithPartitions(8))
func NewFinder(opts ...Option) *Finder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Finder{config: cfg, cache: newVehicleCache()}
}

// Singleton pattern for the process-wide Finder.
var (
	defaultFinder     *Finder
	defaultFinderOnce sync.Once
)

// DefaultFinder returns the shared Finder, reading DefaultDataFile next to
// the running executable with the default options.
func DefaultFinder() *Finder {
	defaultFinderOnce.Do(func() {
		defaultFinder = NewFinder()
	})
	return defaultFinder
}

// Cache populates the shared Finder. See Finder.Cache.
func Cache(ctx context.Context) error {
	return DefaultFinder().Cache(ctx)
}

// Find queries the shared Finder. See Finder.Find.
func Find(p Position) Result {
	return DefaultFinder().Find(p)
}

// Cache reads the positions file into memory. Only the first call does any
// work: concurrent callers wait for it and every call returns its result.
// On failure the cache is left empty. The context of the first call bounds
// the caching phase; if it is canceled, the cancellation is the lasting
// result and a new Finder is needed to try again.
func (f *Finder) Cache(ctx context.Context) error {
	f.once.Do(func() {
		f.err = f.populate(ctx)
		f.cached.Store(f.err == nil)
	})
	return f.err
}

// Cached reports whether Cache has completed successfully.
func (f *Finder) Cached() bool {
	return f.cached.Load()
}

// Len returns the number of cached vehicles.
func (f *Finder) Len() int {
	return f.cache.Len()
}

// Vehicles returns the underlying cache.
func (f *Finder) Vehicles() *VehicleCache {
	return f.cache
}

func (f *Finder) populate(ctx context.Context) (err error) {
	start := time.Now()
	path := resolveDataFile(f.config.DataFile)
	log := f.config.Logger.WithField("file", path)

	defer func() {
		if err != nil {
			f.cache.reset()
		}
		f.cache.seal()
		f.config.Metrics.RecordCache(f.cache.Len(), time.Since(start), err)
	}()

	src, err := openSource(path)
	if err != nil {
		log.WithError(err).Error("failed to open vehicle positions")
		return err
	}

	chunks, err := f.plan(src)
	if err != nil {
		log.WithError(err).Error("failed to partition vehicle positions")
		return err
	}
	log.WithFields(logrus.Fields{
		"size":         src.Size(),
		"partitions":   len(chunks),
		"partitioning": f.config.Partitioning,
	}).Info("caching vehicles")

	format := recordFormat{
		Encoding:           f.config.RegistrationEncoding,
		MaxRegistrationLen: f.config.MaxRegistrationLen,
	}
	if err := populate(ctx, f.cache, src, chunks, format, log); err != nil {
		log.WithError(err).Error("failed to cache vehicles")
		return err
	}

	log.WithFields(logrus.Fields{
		"records": len(f.cache.vehicles),
		"elapsed": time.Since(start),
	}).Info("vehicles cached")
	return nil
}

// plan splits src into worker chunks according to the configuration.
func (f *Finder) plan(src source) ([]Chunk, error) {
	n := f.config.Partitions
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	if f.config.Partitioning == PartitionByteOffset {
		return Partition(src.Size(), n), nil
	}

	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return AlignPartitions(rc, src.Size(), n)
}

// Find returns the cached vehicle nearest to p. Every vehicle is compared;
// on equal distances the first one scanned wins, and since the cache order
// depends on worker scheduling the winner of an exact tie is not
// deterministic across runs.
//
// When the cache is empty, not yet populated, or p has non-finite
// coordinates, the Result has a nil Vehicle and MaxDistance.
func (f *Finder) Find(p Position) Result {
	res := Result{Position: p, Distance: MaxDistance}
	if !p.valid() || !f.cache.Sealed() {
		return res
	}

	start := time.Now()
	q := p.LatLng()
	distance := f.config.Distance
	var best *Vehicle
	scanned := 0
	f.cache.scan(func(v *Vehicle) bool {
		scanned++
		if d := distance(q, v.LatLng()); d < res.Distance {
			res.Distance = d
			best = v
		}
		return true
	})
	if best != nil {
		v := *best
		res.Vehicle = &v
	}
	f.config.Metrics.RecordFind(scanned, time.Since(start))
	return res
}

// FindAll runs Find for every position concurrently and returns the results
// in the order of positions.
func (f *Finder) FindAll(ctx context.Context, positions []Position) ([]Result, error) {
	results := make([]Result, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range positions {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = f.Find(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("finding nearest vehicles: %w", err)
	}
	return results, nil
}
