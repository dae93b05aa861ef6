package ident

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// Alphabet is the 64 symbol alphabet of the interchange form.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_$"

	// Length is the number of characters in the interchange form.
	Length = 22

	// ZeroSymbol is the alphabet symbol with value 0, used for padding.
	ZeroSymbol = '0'
)

// ErrInvalidFormat is returned for malformed interchange strings.
var ErrInvalidFormat = errors.New("invalid identity format")

// decodeTable maps an ASCII byte to its 6-bit value, or 0xFF.
var decodeTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 0xFF
	}
	for i := 0; i < len(Alphabet); i++ {
		t[Alphabet[i]] = byte(i)
	}
	return t
}()

// ID is the canonical identity of a building element.
type ID struct {
	Hi uint64
	Lo uint64
}

// Nil is the zero identity.
var Nil ID

// IsNil reports whether id is the zero identity.
func (id ID) IsNil() bool {
	return id.Hi == 0 && id.Lo == 0
}

// Compare orders identities by high word, then low word.
func (id ID) Compare(other ID) int {
	switch {
	case id.Hi < other.Hi:
		return -1
	case id.Hi > other.Hi:
		return 1
	case id.Lo < other.Lo:
		return -1
	case id.Lo > other.Lo:
		return 1
	}
	return 0
}

// Decode converts a 22 character string into an identity.
func Decode(s string) (ID, error) {
	if len(s) != Length {
		return Nil, fmt.Errorf("%w: length %d, want %d", ErrInvalidFormat, len(s), Length)
	}

	var v [Length]uint64
	for i := 0; i < Length; i++ {
		d := decodeTable[s[i]]
		if d == 0xFF {
			return Nil, fmt.Errorf("%w: symbol %q at position %d", ErrInvalidFormat, s[i], i)
		}
		v[i] = uint64(d)
	}
	// The leading symbol only carries two bits.
	if v[0] > 3 {
		return Nil, fmt.Errorf("%w: leading symbol %q out of range", ErrInvalidFormat, s[0])
	}

	var id ID
	id.Hi = v[0] << 62
	for i := 1; i <= 10; i++ {
		id.Hi |= v[i] << (62 - 6*uint(i))
	}
	id.Hi |= v[11] >> 4
	id.Lo = (v[11] & 0x0F) << 60
	for i := 12; i < Length; i++ {
		id.Lo |= v[i] << (6 * uint(21-i))
	}
	return id, nil
}

// MustDecode is like Decode but panics on error. Intended for tests and constants.
func MustDecode(s string) ID {
	id, err := Decode(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Encode converts an identity into its 22 character form.
func Encode(id ID) string {
	var b [Length]byte
	b[0] = Alphabet[id.Hi>>62]
	for i := 1; i <= 10; i++ {
		b[i] = Alphabet[(id.Hi>>(62-6*uint(i)))&0x3F]
	}
	b[11] = Alphabet[((id.Hi&0x03)<<4)|(id.Lo>>60)]
	for i := 12; i < Length; i++ {
		b[i] = Alphabet[(id.Lo>>(6*uint(21-i)))&0x3F]
	}
	return string(b[:])
}

// String returns the 22 character form.
func (id ID) String() string {
	return Encode(id)
}

// Pad left-pads s with the zero symbol up to Length characters.
// Strings that are already Length or longer are returned unchanged.
func Pad(s string) string {
	if len(s) >= Length {
		return s
	}
	return strings.Repeat(string(ZeroSymbol), Length-len(s)) + s
}

// Parse decodes s after padding it to Length characters.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("%w: empty string", ErrInvalidFormat)
	}
	return Decode(Pad(s))
}

// TrimPadding strips leading zero symbols, keeping at least one character.
// It reverses Pad for identities that were derived from short numeric ids.
func TrimPadding(s string) string {
	t := strings.TrimLeft(s, string(ZeroSymbol))
	if t == "" && s != "" {
		return string(ZeroSymbol)
	}
	return t
}

// FromUint64 builds an identity whose low word is n.
func FromUint64(n uint64) ID {
	return ID{Lo: n}
}

// Uint64 returns the low word and whether the identity fits in it.
func (id ID) Uint64() (uint64, bool) {
	return id.Lo, id.Hi == 0
}

// Bytes returns the identity as 16 big-endian bytes, high word first.
func (id ID) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:], id.Lo)
	return b
}

// FromBytes is the inverse of Bytes.
func FromBytes(b []byte) (ID, error) {
	if len(b) != 16 {
		return Nil, fmt.Errorf("%w: %d bytes, want 16", ErrInvalidFormat, len(b))
	}
	return ID{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}, nil
}

// UUID reinterprets the identity as a GUID.
func (id ID) UUID() uuid.UUID {
	return uuid.UUID(id.Bytes())
}

// FromUUID reinterprets a GUID as an identity.
func FromUUID(u uuid.UUID) ID {
	id, _ := FromBytes(u[:])
	return id
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(Encode(id)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Short inputs are padded.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
