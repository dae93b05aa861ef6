// Package cell implements linear octree addressing.
//
// An Address packs the path of octant choices from the root together with
// the depth into a single uint64:
//
//	bits 63..7  octant digits, three bits per level, level 1 most significant
//	bits  6..2  level (0..MaxLevel)
//	bit      1  border flag
//	bit      0  always zero
//
// Because digits are left aligned, addresses at the same level order
// numerically exactly as their paths order lexically, and every descendant of
// a cell falls into one contiguous numeric range (see Address.Range).
package cell

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxLevel is the deepest level an Address can encode.
	MaxLevel = 19

	// GridSize is the number of integer grid steps along each axis. A cell at
	// level l spans GridSize>>l steps.
	GridSize = 1 << MaxLevel

	digitBits  = 3
	levelShift = 2
	levelMask  = 0x1F
	borderBit  = 1 << 1
)

var (
	// ErrInvalidAddress is returned for malformed addresses or address strings.
	ErrInvalidAddress = errors.New("invalid cell address")

	// ErrMaxLevel is returned when a level beyond MaxLevel is requested.
	ErrMaxLevel = errors.New("cell level exceeds maximum")
)

// Address is a linear octree cell address.
type Address uint64

// Root is the address of the root cell.
const Root Address = 0

func digitShift(level int) uint {
	return uint(64 - digitBits*level)
}

func prefixMask(level int) uint64 {
	if level <= 0 {
		return 0
	}
	return ^uint64(0) << digitShift(level)
}

// New builds an address from a path of octants.
func New(octants ...uint8) (Address, error) {
	if len(octants) > MaxLevel {
		return 0, fmt.Errorf("%w: %d levels", ErrMaxLevel, len(octants))
	}
	a := Root
	for _, o := range octants {
		if o > 7 {
			return 0, fmt.Errorf("%w: octant %d", ErrInvalidAddress, o)
		}
		a = a.Child(int(o))
	}
	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(octants ...uint8) Address {
	a, err := New(octants...)
	if err != nil {
		panic(err)
	}
	return a
}

// Level returns the depth of the cell; the root is level 0.
func (a Address) Level() int {
	return int((uint64(a) >> levelShift) & levelMask)
}

// IsRoot reports whether a is the root cell (in either variant).
func (a Address) IsRoot() bool {
	return a.Canonical() == Root
}

// digits returns only the path bits.
func (a Address) digits() uint64 {
	return uint64(a) & prefixMask(a.Level())
}

// Digit returns the octant chosen at the given level (1..Level).
func (a Address) Digit(level int) uint8 {
	if level < 1 || level > a.Level() {
		panic(fmt.Sprintf("cell: digit level %d out of range for %v", level, a))
	}
	return uint8((uint64(a) >> digitShift(level)) & 0x7)
}

// Octant returns the last octant of the path, or 0 for the root.
func (a Address) Octant() uint8 {
	l := a.Level()
	if l == 0 {
		return 0
	}
	return a.Digit(l)
}

// Parent returns the canonical parent. The parent of the root is the root.
func (a Address) Parent() Address {
	l := a.Level()
	if l == 0 {
		return Root
	}
	return Address(uint64(a)&prefixMask(l-1) | uint64(l-1)<<levelShift)
}

// Child returns the canonical child in octant k (0..7).
// It panics when k is out of range or a is already at MaxLevel.
func (a Address) Child(k int) Address {
	l := a.Level()
	if k < 0 || k > 7 {
		panic(fmt.Sprintf("cell: octant %d out of range", k))
	}
	if l >= MaxLevel {
		panic(fmt.Sprintf("cell: %v has no children", a))
	}
	return Address(a.digits() | uint64(k)<<digitShift(l+1) | uint64(l+1)<<levelShift)
}

// Children returns the eight canonical children in octant order.
func (a Address) Children() [8]Address {
	var c [8]Address
	for k := range 8 {
		c[k] = a.Child(k)
	}
	return c
}

// Border returns the border variant: the same cell flagged as a boundary case.
func (a Address) Border() Address {
	return a | borderBit
}

// IsBorder reports whether a is a border variant.
func (a Address) IsBorder() bool {
	return a&borderBit != 0
}

// Canonical returns a with the border flag cleared.
func (a Address) Canonical() Address {
	return a &^ borderBit
}

// Ancestors returns every proper ancestor, nearest first, ending with the root.
func (a Address) Ancestors() []Address {
	l := a.Level()
	if l == 0 {
		return nil
	}
	out := make([]Address, 0, l)
	for p := a.Parent(); ; p = p.Parent() {
		out = append(out, p)
		if p == Root {
			return out
		}
	}
}

// AncestorAt returns the ancestor at the given level (0..Level).
func (a Address) AncestorAt(level int) Address {
	if level < 0 || level > a.Level() {
		panic(fmt.Sprintf("cell: ancestor level %d out of range for %v", level, a))
	}
	return Address(uint64(a)&prefixMask(level) | uint64(level)<<levelShift)
}

// IsAncestorOf reports whether a is a proper ancestor of b.
func (a Address) IsAncestorOf(b Address) bool {
	la := a.Level()
	if la >= b.Level() {
		return false
	}
	return uint64(b)&prefixMask(la) == a.digits()
}

// Range returns the inclusive numeric range holding exactly the proper
// descendants of a (both variants). ok is false at MaxLevel.
func (a Address) Range() (lo, hi Address, ok bool) {
	l := a.Level()
	if l >= MaxLevel {
		return 0, 0, false
	}
	d := a.digits()
	return Address(d | uint64(l+1)<<levelShift), Address(d | ^prefixMask(l)), true
}

// Valid reports whether a is a well-formed address.
func (a Address) Valid() bool {
	l := a.Level()
	if l > MaxLevel {
		return false
	}
	if a&1 != 0 {
		return false
	}
	rest := uint64(a) &^ prefixMask(l) &^ (levelMask << levelShift) &^ borderBit
	return rest == 0
}

// String returns the path form: "r" followed by the octant digits, with a
// trailing "*" for border variants.
func (a Address) String() string {
	var sb strings.Builder
	l := a.Level()
	sb.Grow(l + 2)
	sb.WriteByte('r')
	for i := 1; i <= l; i++ {
		sb.WriteByte('0' + a.Digit(i))
	}
	if a.IsBorder() {
		sb.WriteByte('*')
	}
	return sb.String()
}

// Parse is the inverse of String.
func Parse(s string) (Address, error) {
	if s == "" || s[0] != 'r' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	body := s[1:]
	border := strings.HasSuffix(body, "*")
	if border {
		body = body[:len(body)-1]
	}
	if len(body) > MaxLevel {
		return 0, fmt.Errorf("%w: %q has %d levels", ErrMaxLevel, s, len(body))
	}
	a := Root
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		a = a.Child(int(c - '0'))
	}
	if border {
		a = a.Border()
	}
	return a, nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
