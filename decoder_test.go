package nearestvehicle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Vehicle
	}{
		{"typical", Vehicle{PositionID: 1, Registration: "29-LQ-1023", Latitude: 34.544909, Longitude: -102.100843, RecordedAt: time.Unix(1_600_000_000, 0).UTC()}},
		{"negative id", Vehicle{PositionID: -7, Registration: "X", Latitude: -33.8688, Longitude: 151.2093, RecordedAt: time.Unix(1, 0).UTC()}},
		{"empty registration", Vehicle{PositionID: math.MaxInt32, Registration: "", Latitude: 0, Longitude: 0, RecordedAt: time.Unix(0, 0).UTC()}},
		{"latin1 registration", Vehicle{PositionID: 99, Registration: "ÄÖ-123", Latitude: 90, Longitude: -180, RecordedAt: time.Unix(4_102_444_800, 0).UTC()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeVehicles(t, RegistrationLatin1, tt.v)
			d := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
			got, err := d.Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !sameVehicle(got, tt.v) {
				t.Errorf("Decode = %+v, want %+v", got, tt.v)
			}
			if d.Offset() != int64(len(data)) {
				t.Errorf("Offset = %d, want %d", d.Offset(), len(data))
			}
			if _, err := d.Decode(); err != io.EOF {
				t.Errorf("second Decode error = %v, want io.EOF", err)
			}
		})
	}
}

func TestDecodeByteLayout(t *testing.T) {
	var data []byte
	data = binary.LittleEndian.AppendUint32(data, uint32(0x01020304))
	data = append(data, 'A', 'B', 'C', 0)
	data = binary.LittleEndian.AppendUint32(data, math.Float32bits(12.5))
	data = binary.LittleEndian.AppendUint32(data, math.Float32bits(-7.25))
	data = binary.LittleEndian.AppendUint64(data, 86400)

	for _, tt := range []struct {
		enc  RegistrationEncoding
		want string
	}{
		{RegistrationLatin1, "ABC"},
		{RegistrationUTF8, "ABC"},
		{RegistrationHex, "41-42-43"},
	} {
		t.Run(tt.enc.String(), func(t *testing.T) {
			v, err := NewDecoder(bytes.NewReader(data), tt.enc).Decode()
			if err != nil {
				t.Fatal(err)
			}
			if v.PositionID != 0x01020304 {
				t.Errorf("PositionID = %#x", v.PositionID)
			}
			if v.Registration != tt.want {
				t.Errorf("Registration = %q, want %q", v.Registration, tt.want)
			}
			if v.Latitude != 12.5 || v.Longitude != -7.25 {
				t.Errorf("coordinates = (%v, %v)", v.Latitude, v.Longitude)
			}
			if want := time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC); !v.RecordedAt.Equal(want) {
				t.Errorf("RecordedAt = %v, want %v", v.RecordedAt, want)
			}
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	full := encodeVehicles(t, RegistrationLatin1, Vehicle{PositionID: 5, Registration: "REG1", Latitude: 1, Longitude: 2, RecordedAt: time.Unix(3, 0)})
	// 4 id + 4 registration + 1 terminator + 16 trailer
	tests := []struct {
		name  string
		keep  int
		field string
	}{
		{"inside position id", 2, "position id"},
		{"before registration", 4, "registration"},
		{"inside registration", 6, "registration"},
		{"before latitude", 9, "latitude"},
		{"inside latitude", 11, "latitude"},
		{"inside longitude", 15, "longitude"},
		{"inside recorded at", 20, "recorded at"},
		{"one byte short", len(full) - 1, "recorded at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix := encodeVehicles(t, RegistrationLatin1, Vehicle{PositionID: 4, Registration: "OK", RecordedAt: time.Unix(0, 0)})
			data := append(append([]byte{}, prefix...), full[:tt.keep]...)

			d := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
			if _, err := d.Decode(); err != nil {
				t.Fatalf("first record: %v", err)
			}
			v, err := d.Decode()
			if !errors.Is(err, ErrTruncatedRecord) {
				t.Fatalf("Decode error = %v, want ErrTruncatedRecord", err)
			}
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("Decode error = %v, want it to wrap io.ErrUnexpectedEOF", err)
			}
			var te *TruncatedRecordError
			if !errors.As(err, &te) {
				t.Fatalf("Decode error %T is not a *TruncatedRecordError", err)
			}
			if te.Offset != int64(len(prefix)) {
				t.Errorf("Offset = %d, want %d", te.Offset, len(prefix))
			}
			if te.Field != tt.field {
				t.Errorf("Field = %q, want %q", te.Field, tt.field)
			}
			if v != (Vehicle{}) {
				t.Errorf("truncated Decode returned a partial record %+v", v)
			}
		})
	}
}

func TestDecodeUnterminatedRegistration(t *testing.T) {
	data := make([]byte, 4+DefaultMaxRegistrationLen+32)
	for i := 4; i < len(data); i++ {
		data[i] = 'Z'
	}
	_, err := NewDecoder(bytes.NewReader(data), RegistrationLatin1).Decode()
	var te *TruncatedRecordError
	if !errors.As(err, &te) || te.Field != "registration" {
		t.Fatalf("Decode error = %v, want a truncated registration", err)
	}

	d := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
	d.SetMaxRegistrationLen(DefaultMaxRegistrationLen)
	_, err = d.Decode()
	var le *RegistrationTooLongError
	if !errors.As(err, &le) {
		t.Fatalf("bounded Decode error = %v, want *RegistrationTooLongError", err)
	}
	if le.Offset != 0 || le.Limit != DefaultMaxRegistrationLen {
		t.Errorf("RegistrationTooLongError = %+v", le)
	}
	if errors.Is(err, ErrTruncatedRecord) {
		t.Errorf("bounded Decode error = %v, must not be a truncated record", err)
	}

	s := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
	s.SetMaxRegistrationLen(DefaultMaxRegistrationLen)
	if err := s.Skip(); !errors.Is(err, ErrRegistrationTooLong) {
		t.Errorf("bounded Skip error = %v, want ErrRegistrationTooLong", err)
	}
}

func TestDecodeLongRegistration(t *testing.T) {
	for _, n := range []int{DefaultMaxRegistrationLen, DefaultMaxRegistrationLen + 1, 300, 4096} {
		want := Vehicle{
			PositionID:   int32(n),
			Registration: strings.Repeat("R", n),
			Latitude:     51.5,
			Longitude:    -0.12,
			RecordedAt:   time.Unix(1_700_000_000, 0).UTC(),
		}
		data := encodeVehicles(t, RegistrationLatin1, want)

		d := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
		got, err := d.Decode()
		if err != nil {
			t.Fatalf("%d byte registration: %v", n, err)
		}
		if !sameVehicle(got, want) {
			t.Errorf("%d byte registration decoded as %+v", n, got)
		}
		if d.Offset() != int64(len(data)) {
			t.Errorf("%d byte registration: Offset = %d, want %d", n, d.Offset(), len(data))
		}

		bounded := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
		bounded.SetMaxRegistrationLen(DefaultMaxRegistrationLen)
		_, err = bounded.Decode()
		if tooLong := n > DefaultMaxRegistrationLen; tooLong != errors.Is(err, ErrRegistrationTooLong) {
			t.Errorf("%d byte registration with bound %d: error = %v", n, DefaultMaxRegistrationLen, err)
		}
	}
}

func TestEncodeRejectsWhatDecodeRejects(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, RegistrationLatin1)
	e.SetMaxRegistrationLen(8)

	if err := e.Encode(Vehicle{Registration: "ABCDEFGH", RecordedAt: time.Unix(1, 0)}); err != nil {
		t.Fatalf("registration at the bound: %v", err)
	}
	n := buf.Len()

	err := e.Encode(Vehicle{Registration: "ABCDEFGHI", RecordedAt: time.Unix(1, 0)})
	if !errors.Is(err, ErrInvalidRegistration) || !errors.Is(err, ErrRegistrationTooLong) {
		t.Errorf("registration over the bound = %v, want ErrInvalidRegistration and ErrRegistrationTooLong", err)
	}
	err = e.Encode(Vehicle{Registration: "PRE", RecordedAt: time.Unix(-1, 0)})
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("time before the epoch = %v, want ErrInvalidTimestamp", err)
	}
	if err := e.Encode(Vehicle{Registration: "ZERO"}); !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("zero time = %v, want ErrInvalidTimestamp", err)
	}
	if buf.Len() != n {
		t.Errorf("rejected records wrote %d bytes", buf.Len()-n)
	}
}

func TestDecodeRecordedAtRange(t *testing.T) {
	record := func(secs uint64) []byte {
		var data []byte
		data = binary.LittleEndian.AppendUint32(data, 9)
		data = append(data, 'T', 0)
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(1))
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(2))
		return binary.LittleEndian.AppendUint64(data, secs)
	}

	v, err := NewDecoder(bytes.NewReader(record(maxRecordedAt)), RegistrationLatin1).Decode()
	if err != nil {
		t.Fatalf("largest representable time: %v", err)
	}
	if v.RecordedAt.Unix() != maxRecordedAt {
		t.Errorf("RecordedAt.Unix() = %d, want %d", v.RecordedAt.Unix(), uint64(maxRecordedAt))
	}

	for _, secs := range []uint64{maxRecordedAt + 1, 1 << 63, math.MaxUint64} {
		data := append(record(7), record(secs)...)
		d := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
		if _, err := d.Decode(); err != nil {
			t.Fatal(err)
		}
		v, err := d.Decode()
		var ie *InvalidTimestampError
		if !errors.As(err, &ie) {
			t.Fatalf("Decode(%d) error = %v, want *InvalidTimestampError", secs, err)
		}
		if ie.Offset != int64(len(data)/2) || ie.Seconds != secs {
			t.Errorf("InvalidTimestampError = %+v", ie)
		}
		if !errors.Is(err, ErrInvalidTimestamp) || errors.Is(err, ErrTruncatedRecord) {
			t.Errorf("Decode(%d) error = %v", secs, err)
		}
		if v != (Vehicle{}) {
			t.Errorf("Decode(%d) returned a record %+v", secs, v)
		}
		if d.Offset() != int64(len(data)) {
			t.Errorf("Decode(%d) left Offset at %d, want %d", secs, d.Offset(), len(data))
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader(nil), RegistrationLatin1).Decode()
	if err != io.EOF {
		t.Errorf("Decode on empty input = %v, want io.EOF", err)
	}
}

func TestSkipMatchesDecode(t *testing.T) {
	data := encodeVehicles(t, RegistrationLatin1, syntheticVehicles(50)...)

	dec := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
	skip := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
	for i := 0; ; i++ {
		_, decErr := dec.Decode()
		skipErr := skip.Skip()
		if decErr != skipErr {
			t.Fatalf("record %d: Decode error %v, Skip error %v", i, decErr, skipErr)
		}
		if dec.Offset() != skip.Offset() {
			t.Fatalf("record %d: Decode offset %d, Skip offset %d", i, dec.Offset(), skip.Offset())
		}
		if decErr == io.EOF {
			break
		}
	}

	// Cut the first record after its one byte registration, before the terminator.
	err := NewDecoder(bytes.NewReader(data[:5]), RegistrationLatin1).Skip()
	var te *TruncatedRecordError
	if !errors.As(err, &te) || te.Field != "registration" {
		t.Errorf("Skip of a short record = %v, want a truncated registration", err)
	}
}

func TestEncodeRejectsZeroByte(t *testing.T) {
	var buf bytes.Buffer
	err := NewEncoder(&buf, RegistrationLatin1).Encode(Vehicle{Registration: "AB\x00CD"})
	if !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("Encode error = %v, want ErrInvalidRegistration", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Encode wrote %d bytes for a rejected record", buf.Len())
	}
}
