package nearestvehicle

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// DefaultMaxRegistrationLen is a registration bound suitable for guarding
// byte-offset partitions, where a worker may start reading mid-record.
const DefaultMaxRegistrationLen = 256

// maxRecordedAt is the largest timestamp in seconds that time.Time can hold
// without overflowing its internal representation.
const maxRecordedAt = math.MaxInt64 - 62135596800

// Record layout, all little-endian:
//
//	positionId    int32
//	registration  bytes, zero terminated
//	latitude      float32
//	longitude     float32
//	recordedAt    uint64 seconds since the Unix epoch
const (
	positionIDSize = 4
	trailerSize    = 4 + 4 + 8
)

// Decoder reads vehicle records from a byte stream.
type Decoder struct {
	r      *bufio.Reader
	off    int64
	reg    *registrationCodec
	maxReg int
	buf    [trailerSize]byte
	regBuf []byte
}

// NewDecoder returns a Decoder reading records from r, starting at offset 0.
func NewDecoder(r io.Reader, enc RegistrationEncoding) *Decoder {
	return newDecoderAt(r, 0, enc)
}

// newDecoderAt returns a Decoder whose Offset starts at off. The caller is
// responsible for r being positioned at off.
func newDecoderAt(r io.Reader, off int64, enc RegistrationEncoding) *Decoder {
	return &Decoder{
		r:      bufio.NewReaderSize(r, 64*1024),
		off:    off,
		reg:    newRegistrationCodec(enc),
		regBuf: make([]byte, 0, 16),
	}
}

// SetMaxRegistrationLen bounds the registration field to n bytes. A longer
// registration is reported as a *RegistrationTooLongError. n <= 0 removes the
// bound, which is the default.
func (d *Decoder) SetMaxRegistrationLen(n int) {
	d.maxReg = n
}

// Offset returns the stream offset of the next unread byte.
func (d *Decoder) Offset() int64 {
	return d.off
}

// Decode reads the next record. It returns io.EOF when the stream ends
// exactly at a record boundary and a *TruncatedRecordError when it ends
// inside a record.
func (d *Decoder) Decode() (Vehicle, error) {
	start := d.off

	n, err := io.ReadFull(d.r, d.buf[:positionIDSize])
	d.off += int64(n)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return Vehicle{}, io.EOF
		}
		return Vehicle{}, truncated(start, "position id", err)
	}
	id := int32(binary.LittleEndian.Uint32(d.buf[:positionIDSize]))

	raw, err := d.readRegistration(start)
	if err != nil {
		return Vehicle{}, err
	}
	reg, err := d.reg.decode(raw)
	if err != nil {
		return Vehicle{}, err
	}

	n, err = io.ReadFull(d.r, d.buf[:trailerSize])
	d.off += int64(n)
	if err != nil {
		return Vehicle{}, truncated(start, trailerField(n), err)
	}

	secs := binary.LittleEndian.Uint64(d.buf[8:16])
	if secs > maxRecordedAt {
		return Vehicle{}, &InvalidTimestampError{Offset: start, Seconds: secs}
	}

	return Vehicle{
		PositionID:   id,
		Registration: reg,
		Latitude:     math.Float32frombits(binary.LittleEndian.Uint32(d.buf[0:4])),
		Longitude:    math.Float32frombits(binary.LittleEndian.Uint32(d.buf[4:8])),
		RecordedAt:   time.Unix(int64(secs), 0).UTC(),
	}, nil
}

// Skip advances past the next record without decoding it. It has the same
// end of stream and registration bound semantics as Decode; the timestamp
// is not checked.
func (d *Decoder) Skip() error {
	start := d.off

	n, err := d.r.Discard(positionIDSize)
	d.off += int64(n)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return io.EOF
		}
		return truncated(start, "position id", err)
	}

	for length := 0; ; length++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return truncated(start, "registration", err)
		}
		d.off++
		if b == 0 {
			break
		}
		if d.maxReg > 0 && length >= d.maxReg {
			return &RegistrationTooLongError{Offset: start, Limit: d.maxReg}
		}
	}

	n, err = d.r.Discard(trailerSize)
	d.off += int64(n)
	if err != nil {
		return truncated(start, trailerField(n), err)
	}
	return nil
}

// readRegistration reads up to and including the zero terminator. The
// returned slice is only valid until the next call.
func (d *Decoder) readRegistration(start int64) ([]byte, error) {
	d.regBuf = d.regBuf[:0]
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, truncated(start, "registration", err)
		}
		d.off++
		if b == 0 {
			return d.regBuf, nil
		}
		if d.maxReg > 0 && len(d.regBuf) >= d.maxReg {
			return nil, &RegistrationTooLongError{Offset: start, Limit: d.maxReg}
		}
		d.regBuf = append(d.regBuf, b)
	}
}

func trailerField(n int) string {
	switch {
	case n < 4:
		return "latitude"
	case n < 8:
		return "longitude"
	default:
		return "recorded at"
	}
}

func truncated(start int64, field string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &TruncatedRecordError{Offset: start, Field: field, cause: err}
}

// Encoder writes vehicle records in the file layout read by Decoder.
type Encoder struct {
	w      io.Writer
	reg    *registrationCodec
	maxReg int
	buf    []byte
}

// NewEncoder returns an Encoder writing to w. Registrations are converted to
// bytes with enc.
func NewEncoder(w io.Writer, enc RegistrationEncoding) *Encoder {
	return &Encoder{w: w, reg: newRegistrationCodec(enc)}
}

// SetMaxRegistrationLen makes Encode reject registrations longer than n
// bytes, matching a Decoder with the same bound. n <= 0 removes the bound.
func (e *Encoder) SetMaxRegistrationLen(n int) {
	e.maxReg = n
}

// Encode writes one record. Nothing is written for a record a Decoder would
// refuse: registrations containing a zero byte, not representable in the
// encoder's encoding or over the registration bound fail with
// ErrInvalidRegistration, and times before the Unix epoch with
// ErrInvalidTimestamp.
func (e *Encoder) Encode(v Vehicle) error {
	raw, err := e.reg.encode(v.Registration)
	if err != nil {
		return err
	}
	if e.maxReg > 0 && len(raw) > e.maxReg {
		return fmt.Errorf("%w: %d bytes: %w", ErrInvalidRegistration, len(raw), ErrRegistrationTooLong)
	}
	secs := v.RecordedAt.Unix()
	if secs < 0 {
		return fmt.Errorf("%w: %v is before the Unix epoch", ErrInvalidTimestamp, v.RecordedAt)
	}

	e.buf = e.buf[:0]
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.PositionID))
	e.buf = append(e.buf, raw...)
	e.buf = append(e.buf, 0)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v.Latitude))
	e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v.Longitude))
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(secs))

	_, err = e.w.Write(e.buf)
	return err
}
