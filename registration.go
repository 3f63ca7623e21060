package nearestvehicle

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// RegistrationEncoding selects how the raw registration bytes of a record are
// turned into Vehicle.Registration.
type RegistrationEncoding int

const (
	// RegistrationLatin1 decodes each byte as an ISO-8859-1 character.
	// Every byte sequence is valid.
	RegistrationLatin1 RegistrationEncoding = iota
	// RegistrationUTF8 decodes the bytes as UTF-8, replacing invalid
	// sequences with U+FFFD.
	RegistrationUTF8
	// RegistrationHex renders the bytes as upper case, hyphen separated hex
	// pairs ("41-42-43"), the format of the legacy console output.
	RegistrationHex
)

var registrationEncodingNames = map[RegistrationEncoding]string{
	RegistrationLatin1: "latin1",
	RegistrationUTF8:   "utf8",
	RegistrationHex:    "hex",
}

func (e RegistrationEncoding) String() string {
	if name, ok := registrationEncodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("RegistrationEncoding(%d)", int(e))
}

// ParseRegistrationEncoding parses the name of an encoding as produced by
// String. Matching is case-insensitive.
func ParseRegistrationEncoding(s string) (RegistrationEncoding, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for enc, name := range registrationEncodingNames {
		if name == key {
			return enc, nil
		}
	}
	return 0, fmt.Errorf("unknown registration encoding %q", s)
}

// registrationCodec converts between raw registration bytes and text for one
// encoding. x/text decoders carry state, so each Decoder/Encoder owns one.
type registrationCodec struct {
	enc  RegistrationEncoding
	dec  *encoding.Decoder
	text *encoding.Encoder
}

func newRegistrationCodec(enc RegistrationEncoding) *registrationCodec {
	c := &registrationCodec{enc: enc}
	switch enc {
	case RegistrationLatin1:
		c.dec = charmap.ISO8859_1.NewDecoder()
		c.text = charmap.ISO8859_1.NewEncoder()
	case RegistrationUTF8:
		c.dec = unicode.UTF8.NewDecoder()
		c.text = unicode.UTF8.NewEncoder()
	}
	return c
}

func (c *registrationCodec) decode(raw []byte) (string, error) {
	if c.enc == RegistrationHex {
		return hexDump(raw), nil
	}
	if c.dec == nil {
		return "", fmt.Errorf("%w: unsupported encoding %v", ErrInvalidRegistration, c.enc)
	}
	out, err := c.dec.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	return string(out), nil
}

func (c *registrationCodec) encode(s string) ([]byte, error) {
	var raw []byte
	switch {
	case c.enc == RegistrationHex:
		b, err := parseHexDump(s)
		if err != nil {
			return nil, err
		}
		raw = b
	case c.text != nil:
		b, err := c.text.Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not representable as %v: %v", ErrInvalidRegistration, s, c.enc, err)
		}
		raw = b
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %v", ErrInvalidRegistration, c.enc)
	}
	for _, b := range raw {
		if b == 0 {
			return nil, fmt.Errorf("%w: %q contains a zero byte", ErrInvalidRegistration, s)
		}
	}
	return raw, nil
}

// hexDump formats b as "41-42-43".
func hexDump(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	return sb.String()
}

func parseHexDump(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a hex dump: %v", ErrInvalidRegistration, s, err)
	}
	return b, nil
}
