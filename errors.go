package nearestvehicle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable is matched by errors returned when the positions
	// file cannot be opened or read.
	ErrSourceUnavailable = errors.New("vehicle positions source unavailable")

	// ErrTruncatedRecord is matched by errors returned when the data ends in
	// the middle of a record.
	ErrTruncatedRecord = errors.New("truncated vehicle record")

	// ErrInvalidRegistration is returned when a registration cannot be
	// represented in the file format or in the configured encoding.
	ErrInvalidRegistration = errors.New("invalid registration")

	// ErrRegistrationTooLong is matched by errors returned when a
	// registration exceeds the configured bound.
	ErrRegistrationTooLong = errors.New("registration too long")

	// ErrInvalidTimestamp is matched by errors returned for a recorded time
	// that cannot be represented.
	ErrInvalidTimestamp = errors.New("invalid recorded time")
)

// SourceError reports a positions file that could not be opened or read.
//
// It matches ErrSourceUnavailable and the underlying cause with errors.Is.
type SourceError struct {
	Path  string
	cause error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("vehicle positions source %s: %v", e.Path, e.cause)
}

func (e *SourceError) Unwrap() []error { return []error{ErrSourceUnavailable, e.cause} }

// TruncatedRecordError reports a record that ends before all of its fields
// were read. Offset is the stream offset of the first byte of the record.
type TruncatedRecordError struct {
	Offset int64
	Field  string
	cause  error
}

func (e *TruncatedRecordError) Error() string {
	return fmt.Sprintf("truncated vehicle record at offset %d: reading %s: %v", e.Offset, e.Field, e.cause)
}

func (e *TruncatedRecordError) Unwrap() []error { return []error{ErrTruncatedRecord, e.cause} }

// RegistrationTooLongError reports a record whose registration runs past
// Limit bytes without a terminator. Offset is the stream offset of the first
// byte of the record.
type RegistrationTooLongError struct {
	Offset int64
	Limit  int
}

func (e *RegistrationTooLongError) Error() string {
	return fmt.Sprintf("vehicle record at offset %d: registration longer than %d bytes", e.Offset, e.Limit)
}

func (e *RegistrationTooLongError) Unwrap() error { return ErrRegistrationTooLong }

// InvalidTimestampError reports a record whose recorded time is outside the
// range of time.Time.
type InvalidTimestampError struct {
	Offset  int64
	Seconds uint64
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("vehicle record at offset %d: recorded at %d seconds is out of range", e.Offset, e.Seconds)
}

func (e *InvalidTimestampError) Unwrap() error { return ErrInvalidTimestamp }

// ChunkError reports the failure of one population worker.
type ChunkError struct {
	Chunk Chunk
	cause error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d [%d, %d): %v", e.Chunk.Index, e.Chunk.Start, e.Chunk.Limit, e.cause)
}

func (e *ChunkError) Unwrap() error { return e.cause }

// PopulateError reports a failed caching phase. Errs holds one *ChunkError per
// failed worker.
type PopulateError struct {
	Chunks int
	Errs   []error
}

func (e *PopulateError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("caching vehicles: %d of %d chunks failed: %s", len(e.Errs), e.Chunks, strings.Join(msgs, "; "))
}

func (e *PopulateError) Unwrap() []error { return e.Errs }
