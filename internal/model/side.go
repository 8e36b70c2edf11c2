package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSide is returned when decoding a side other than LONG or SHORT.
var ErrInvalidSide = errors.New("invalid side")

// Side is the direction of a position. Only SideLong and SideShort are valid;
// the zero value is not a valid side.
type Side uint8

const (
	SideLong Side = iota + 1
	SideShort
)

// String returns "LONG" or "SHORT".
func (s Side) String() string {
	switch s {
	case SideLong:
		return "LONG"
	case SideShort:
		return "SHORT"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// Valid reports whether s is one of the two defined sides.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// MarshalText encodes the side as "LONG" / "SHORT" for JSON and YAML.
func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal %v: %w", s, ErrInvalidSide)
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts exactly "LONG" or "SHORT".
func (s *Side) UnmarshalText(b []byte) error {
	p, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = p
	return nil
}

// ParseSide parses the wire representation of a side.
func ParseSide(v string) (Side, error) {
	switch v {
	case "LONG":
		return SideLong, nil
	case "SHORT":
		return SideShort, nil
	}
	return 0, fmt.Errorf("%q: %w", v, ErrInvalidSide)
}
