package nearestvehicle

import (
	"github.com/sirupsen/logrus"
)

// Config contains configuration options for a Finder.
type Config struct {
	DataFile             string               // Positions file (default: DefaultDataFile next to the executable)
	Partitions           int                  // Parallel population workers (default: DefaultPartitions)
	Partitioning         Partitioning         // How the file is split between workers (default: PartitionAligned)
	RegistrationEncoding RegistrationEncoding // Registration decoding (default: RegistrationLatin1)
	MaxRegistrationLen   int                  // Registration bound in bytes, 0 for none (default: 0)
	Distance             DistanceFunc         // Distance function (default: Distance)
	Logger               logrus.FieldLogger   // Logger (default: logrus standard logger)
	Metrics              MetricsCollector     // Metrics sink (default: NoopMetricsCollector)
}

// Option is a functional option for configuring a Finder.
type Option func(*Config)

// WithDataFile sets the positions file.
func WithDataFile(path string) Option {
	return func(c *Config) {
		c.DataFile = path
	}
}

// WithPartitions sets the number of population workers. Values below 1 use
// runtime.GOMAXPROCS(0).
func WithPartitions(n int) Option {
	return func(c *Config) {
		c.Partitions = n
	}
}

// WithPartitioning sets how the file is split between workers.
func WithPartitioning(p Partitioning) Option {
	return func(c *Config) {
		c.Partitioning = p
	}
}

// WithRegistrationEncoding sets how registration bytes are decoded.
func WithRegistrationEncoding(enc RegistrationEncoding) Option {
	return func(c *Config) {
		c.RegistrationEncoding = enc
	}
}

// WithMaxRegistrationLen bounds the registration field of every record. A
// record with a longer registration fails the caching phase with
// ErrRegistrationTooLong. n <= 0 means no bound. The bound is a guard for
// PartitionByteOffset, where a worker starting mid-record would otherwise
// read until the next zero byte; DefaultMaxRegistrationLen is a reasonable
// value there.
func WithMaxRegistrationLen(n int) Option {
	return func(c *Config) {
		c.MaxRegistrationLen = n
	}
}

// WithDistanceFunc sets the distance function used by Find.
func WithDistanceFunc(fn DistanceFunc) Option {
	return func(c *Config) {
		if fn != nil {
			c.Distance = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Partitions:           DefaultPartitions,
		Partitioning:         PartitionAligned,
		RegistrationEncoding: RegistrationLatin1,
		Distance:             Distance,
		Logger:               logrus.StandardLogger(),
		Metrics:              NoopMetricsCollector{},
	}
}
