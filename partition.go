package nearestvehicle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultPartitions is the number of parallel population workers.
const DefaultPartitions = 4

// Partitioning selects how the positions file is split between workers.
type Partitioning int

const (
	// PartitionAligned splits the file at record starts found by a forward
	// skim of the records. Every record is decoded exactly once.
	PartitionAligned Partitioning = iota

	// PartitionByteOffset splits the file at evenly spaced byte offsets with
	// no regard for record starts. A boundary that falls inside a record makes
	// the worker before it decode that record in full while the worker after
	// it starts decoding mid-record, producing garbage records or a truncated
	// record error. Only use it for files whose boundaries are known to
	// coincide with record starts, or to reproduce legacy counts.
	PartitionByteOffset
)

func (p Partitioning) String() string {
	switch p {
	case PartitionAligned:
		return "aligned"
	case PartitionByteOffset:
		return "byte-offset"
	default:
		return fmt.Sprintf("Partitioning(%d)", int(p))
	}
}

// ParsePartitioning parses "aligned" or "byte-offset".
func ParsePartitioning(s string) (Partitioning, error) {
	switch s {
	case "aligned", "":
		return PartitionAligned, nil
	case "byte-offset":
		return PartitionByteOffset, nil
	default:
		return 0, fmt.Errorf("unknown partitioning %q", s)
	}
}

// Chunk is the byte range [Start, Limit) assigned to one worker. A worker
// decodes every record that starts before Limit.
type Chunk struct {
	Index int
	Start int64
	Limit int64
}

// Len returns the number of bytes in the chunk.
func (c Chunk) Len() int64 {
	return c.Limit - c.Start
}

// Partition divides size bytes into n contiguous, non-overlapping ranges of
// size/n bytes, the last one absorbing the remainder. Empty ranges are
// omitted, so fewer than n chunks are returned when size < n.
func Partition(size int64, n int) []Chunk {
	if size <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	step := size / int64(n)
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		start := int64(i) * step
		limit := start + step
		if i == n-1 {
			limit = size
		}
		if limit <= start {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Start: start, Limit: limit})
	}
	return chunks
}

// AlignPartitions reads the records of r, which holds size bytes, and
// returns up to n chunks whose boundaries are the first record starts at or
// after the nominal boundaries of Partition. The skim stops after the last
// boundary is found. Registrations are not length bounded: the skim starts
// at offset 0 and stays on record starts.
func AlignPartitions(r io.Reader, size int64, n int) ([]Chunk, error) {
	nominal := Partition(size, n)
	if len(nominal) <= 1 {
		return nominal, nil
	}

	d := NewDecoder(r, RegistrationHex)
	starts := make([]int64, 1, len(nominal))
	for next := 1; next < len(nominal); {
		off := d.Offset()
		if off >= nominal[next].Start {
			// A long record may cover several nominal boundaries.
			if off < size && off > starts[len(starts)-1] {
				starts = append(starts, off)
			}
			next++
			continue
		}
		if err := d.Skip(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("aligning partitions: %w", err)
		}
	}

	chunks := make([]Chunk, len(starts))
	for i, start := range starts {
		limit := size
		if i+1 < len(starts) {
			limit = starts[i+1]
		}
		chunks[i] = Chunk{Index: i, Start: start, Limit: limit}
	}
	return chunks, nil
}

// recordFormat holds the per-record decoding settings of a population.
type recordFormat struct {
	Encoding           RegistrationEncoding
	MaxRegistrationLen int
}

func (f recordFormat) newDecoder(r io.Reader, off int64) *Decoder {
	d := newDecoderAt(r, off, f.Encoding)
	d.SetMaxRegistrationLen(f.MaxRegistrationLen)
	return d
}

// decodeChunk decodes every record starting inside c from its own cursor
// over src, handing them to emit in batches. The batch slice is reused after
// emit returns.
func decodeChunk(ctx context.Context, src source, c Chunk, format recordFormat, emit func([]Vehicle)) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rc, err := src.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	if _, err := rc.Seek(c.Start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking to %d: %w", c.Start, err)
	}

	d := format.newDecoder(rc, c.Start)
	batch := make([]Vehicle, 0, cacheFlushSize)
	count := 0
	for d.Offset() < c.Limit {
		if len(batch) == cap(batch) {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			emit(batch)
			count += len(batch)
			batch = batch[:0]
		}
		v, err := d.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}
		batch = append(batch, v)
	}
	if len(batch) > 0 {
		emit(batch)
		count += len(batch)
	}
	return count, nil
}

// populate runs one worker per chunk and waits for all of them. The first
// failure cancels the remaining workers; every failure that is not such a
// cancellation is reported in the returned *PopulateError.
func populate(ctx context.Context, cache *VehicleCache, src source, chunks []Chunk, format recordFormat, log logrus.FieldLogger) error {
	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(chunks))
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			n, err := decodeChunk(gctx, src, c, format, cache.add)
			if err != nil {
				errs[i] = &ChunkError{Chunk: c, cause: err}
				return errs[i]
			}
			log.WithFields(logrus.Fields{
				"chunk":   c.Index,
				"start":   c.Start,
				"limit":   c.Limit,
				"records": n,
			}).Debug("chunk decoded")
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}

	failed := make([]error, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			continue
		}
		failed = append(failed, err)
	}
	return &PopulateError{Chunks: len(chunks), Errs: failed}
}
