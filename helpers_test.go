package nearestvehicle

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// quietLogger discards everything logged by the code under test.
func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// encodeVehicles returns vehicles in the file layout.
func encodeVehicles(t testing.TB, enc RegistrationEncoding, vehicles ...Vehicle) []byte {
	t.Helper()
	var buf bytes.Buffer
	e := NewEncoder(&buf, enc)
	for _, v := range vehicles {
		if err := e.Encode(v); err != nil {
			t.Fatalf("Encode(%+v): %v", v, err)
		}
	}
	return buf.Bytes()
}

// writeFixture writes vehicles to a positions file in a temporary directory.
func writeFixture(t testing.TB, vehicles ...Vehicle) string {
	t.Helper()
	return writeRaw(t, encodeVehicles(t, RegistrationLatin1, vehicles...))
}

func writeRaw(t testing.TB, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultDataFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// syntheticVehicles returns n vehicles with registrations of varying length.
func syntheticVehicles(n int) []Vehicle {
	vehicles := make([]Vehicle, n)
	base := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range vehicles {
		reg := make([]byte, 1+i%11)
		for j := range reg {
			reg[j] = byte('A' + (i+j)%26)
		}
		vehicles[i] = Vehicle{
			PositionID:   int32(i + 1),
			Registration: string(reg),
			Latitude:     float32(30 + float64(i%500)/100),
			Longitude:    float32(-100 + float64(i%700)/100),
			RecordedAt:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	return vehicles
}

// fixedWidthVehicles returns n vehicles whose encoded records are all
// recordSize bytes long.
func fixedWidthVehicles(n, recordSize int) []Vehicle {
	regLen := recordSize - positionIDSize - 1 - trailerSize
	vehicles := syntheticVehicles(n)
	for i := range vehicles {
		reg := make([]byte, regLen)
		for j := range reg {
			reg[j] = byte('0' + (i+j)%10)
		}
		vehicles[i].Registration = string(reg)
	}
	return vehicles
}

func sameVehicle(a, b Vehicle) bool {
	return a.PositionID == b.PositionID &&
		a.Registration == b.Registration &&
		a.Latitude == b.Latitude &&
		a.Longitude == b.Longitude &&
		a.RecordedAt.Equal(b.RecordedAt)
}

// countByID tallies vehicles by position id.
func countByID(vehicles []Vehicle) map[int32]int {
	counts := make(map[int32]int, len(vehicles))
	for _, v := range vehicles {
		counts[v.PositionID]++
	}
	return counts
}

// decodeAll decodes data sequentially in one pass.
func decodeAll(t testing.TB, data []byte) []Vehicle {
	t.Helper()
	d := NewDecoder(bytes.NewReader(data), RegistrationLatin1)
	var out []Vehicle
	for {
		v, err := d.Decode()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("sequential decode: %v", err)
		}
		out = append(out, v)
	}
}
