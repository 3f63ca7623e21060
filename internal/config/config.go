// Package config reads the nearest-vehicle command configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/andreiashu/nearestvehicle"
)

// DefaultGeohashPrecision is the geohash length printed next to each match.
const DefaultGeohashPrecision = 9

// Position is a query position in the configuration file. Coordinates are
// kept at float64 precision.
type Position struct {
	ID        int     `yaml:"id"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Settings is the configuration file layout.
type Settings struct {
	DataFile             string     `yaml:"data_file"`
	Partitions           int        `yaml:"partitions"`
	Partitioning         string     `yaml:"partitioning"`
	RegistrationEncoding string     `yaml:"registration_encoding"`
	MaxRegistrationLen   int        `yaml:"max_registration_len"`
	Distance             string     `yaml:"distance"`
	GeohashPrecision     int        `yaml:"geohash_precision"`
	LogLevel             string     `yaml:"log_level"`
	LogFilePath          string     `yaml:"log_file_path"`
	LogMaxAgeDays        int        `yaml:"log_max_age_days"`
	Positions            []Position `yaml:"positions"`
}

// DefaultPositions are queried when the configuration lists none.
var DefaultPositions = []Position{
	{ID: 1, Latitude: 34.544909, Longitude: -102.100843},
	{ID: 2, Latitude: 32.345544, Longitude: -99.123124},
	{ID: 3, Latitude: 33.234235, Longitude: -100.214124},
	{ID: 4, Latitude: 35.195739, Longitude: -95.348899},
	{ID: 5, Latitude: 31.895839, Longitude: -97.789573},
	{ID: 6, Latitude: 32.895839, Longitude: -101.789573},
	{ID: 7, Latitude: 34.115839, Longitude: -100.225732},
	{ID: 8, Latitude: 32.335839, Longitude: -99.992232},
	{ID: 9, Latitude: 33.535339, Longitude: -94.792232},
	{ID: 10, Latitude: 32.234235, Longitude: -100.222222},
}

// Default returns the settings used when no configuration file is given.
func Default() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

// New reads and validates the configuration file at confPath.
func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Settings) applyDefaults() {
	if s.Partitions == 0 {
		s.Partitions = nearestvehicle.DefaultPartitions
	}
	if s.Partitioning == "" {
		s.Partitioning = nearestvehicle.PartitionAligned.String()
	}
	if s.RegistrationEncoding == "" {
		s.RegistrationEncoding = nearestvehicle.RegistrationLatin1.String()
	}
	if s.MaxRegistrationLen < 0 {
		log.Errorf("Invalid max_registration_len (%d). Defaulting to 0 (no bound).", s.MaxRegistrationLen)
		s.MaxRegistrationLen = 0
	}
	if s.Distance == "" {
		s.Distance = "s2"
	}
	if s.GeohashPrecision == 0 {
		s.GeohashPrecision = DefaultGeohashPrecision
	}
	if s.GeohashPrecision < 1 || s.GeohashPrecision > 12 {
		log.Errorf("Invalid geohash_precision (%d). Value must be between 1 and 12. Defaulting to %d.", s.GeohashPrecision, DefaultGeohashPrecision)
		s.GeohashPrecision = DefaultGeohashPrecision
	}
	if len(s.Positions) == 0 {
		s.Positions = append([]Position(nil), DefaultPositions...)
	}
}

// Validate checks the enumerated settings.
func (s *Settings) Validate() error {
	if _, err := nearestvehicle.ParsePartitioning(s.Partitioning); err != nil {
		return err
	}
	if _, err := nearestvehicle.ParseRegistrationEncoding(s.RegistrationEncoding); err != nil {
		return err
	}
	if _, err := s.DistanceFunc(); err != nil {
		return err
	}
	return nil
}

// DistanceFunc returns the distance function named by Distance.
func (s *Settings) DistanceFunc() (nearestvehicle.DistanceFunc, error) {
	switch strings.ToLower(s.Distance) {
	case "s2", "":
		return nearestvehicle.Distance, nil
	case "haversine":
		return nearestvehicle.HaversineDistance, nil
	default:
		return nil, fmt.Errorf("unknown distance %q", s.Distance)
	}
}

// GetLogLevel maps LogLevel to a logrus level, defaulting to info.
func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch strings.ToUpper(s.LogLevel) {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

// FinderOptions converts the settings to Finder options.
func (s *Settings) FinderOptions() ([]nearestvehicle.Option, error) {
	partitioning, err := nearestvehicle.ParsePartitioning(s.Partitioning)
	if err != nil {
		return nil, err
	}
	enc, err := nearestvehicle.ParseRegistrationEncoding(s.RegistrationEncoding)
	if err != nil {
		return nil, err
	}
	distance, err := s.DistanceFunc()
	if err != nil {
		return nil, err
	}
	return []nearestvehicle.Option{
		nearestvehicle.WithDataFile(s.DataFile),
		nearestvehicle.WithPartitions(s.Partitions),
		nearestvehicle.WithPartitioning(partitioning),
		nearestvehicle.WithRegistrationEncoding(enc),
		nearestvehicle.WithMaxRegistrationLen(s.MaxRegistrationLen),
		nearestvehicle.WithDistanceFunc(distance),
	}, nil
}

// QueryPositions returns the configured positions as query values.
func (s *Settings) QueryPositions() []nearestvehicle.Position {
	positions := make([]nearestvehicle.Position, len(s.Positions))
	for i, p := range s.Positions {
		positions[i] = nearestvehicle.Position{ID: p.ID, Latitude: p.Latitude, Longitude: p.Longitude}
	}
	return positions
}
