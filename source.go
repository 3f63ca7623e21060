package nearestvehicle

import (
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// DefaultDataFile is the positions file name looked up next to the running
// executable when no data file is configured.
const DefaultDataFile = "VehiclePositions.dat"

// source hands out independent cursors over the positions data, one per
// population worker.
type source interface {
	Name() string
	Size() int64
	Open() (io.ReadSeekCloser, error)
}

// fileSource opens a new file handle per cursor.
type fileSource struct {
	path string
	size int64
}

func (s *fileSource) Name() string { return s.path }
func (s *fileSource) Size() int64  { return s.size }

func (s *fileSource) Open() (io.ReadSeekCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &SourceError{Path: s.path, cause: err}
	}
	return f, nil
}

// memorySource serves cursors over an inflated compressed file. The buffer
// is never written after construction.
type memorySource struct {
	name string
	data []byte
}

func (s *memorySource) Name() string { return s.name }
func (s *memorySource) Size() int64  { return int64(len(s.data)) }

func (s *memorySource) Open() (io.ReadSeekCloser, error) {
	return nopSeekCloser{bytes.NewReader(s.data)}, nil
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }

// resolveDataFile returns path, or DefaultDataFile in the directory of the
// running executable when path is empty.
func resolveDataFile(path string) string {
	if path != "" {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return DefaultDataFile
	}
	return filepath.Join(filepath.Dir(exe), DefaultDataFile)
}

// openSource opens the positions file at path. Files ending in .bz2, .gz,
// .zst or .lz4 are inflated into memory; anything else is read in place.
func openSource(path string) (source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, cause: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, &SourceError{Path: path, cause: err}
	}
	if fi.IsDir() {
		return nil, &SourceError{Path: path, cause: errors.New("is a directory")}
	}

	var r io.Reader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bz2":
		r = bzip2.NewReader(f)
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, &SourceError{Path: path, cause: fmt.Errorf("opening gzip stream: %w", err)}
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, &SourceError{Path: path, cause: fmt.Errorf("opening zstd stream: %w", err)}
		}
		defer zr.Close()
		r = zr
	case ".lz4":
		r = lz4.NewReader(f)
	default:
		return &fileSource{path: path, size: fi.Size()}, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &SourceError{Path: path, cause: fmt.Errorf("inflating: %w", err)}
	}
	return &memorySource{name: path, data: data}, nil
}
