package jsonbig

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"
)

// Int is an immutable arbitrary-precision integer with JSON support. The zero
// value is 0.
type Int struct {
	n *big.Int
}

// NewInt returns an Int holding v.
func NewInt(v int64) Int {
	return Int{n: big.NewInt(v)}
}

// ParseInt parses a base-10 integer.
func ParseInt(text string) (Int, error) {
	n, ok := parseInteger(text)
	if !ok {
		return Int{}, fmt.Errorf("jsonbig: invalid integer %q", text)
	}
	return Int{n: n}, nil
}

// Big returns a copy of the underlying value.
func (i Int) Big() *big.Int {
	if i.n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(i.n)
}

// IsZero reports whether the value is 0.
func (i Int) IsZero() bool {
	return i.n == nil || i.n.Sign() == 0
}

// Cmp compares i and other like big.Int.Cmp.
func (i Int) Cmp(other Int) int {
	return i.Big().Cmp(other.Big())
}

func (i Int) String() string {
	if i.n == nil {
		return "0"
	}
	return i.n.String()
}

// MarshalJSON writes the value as a bare JSON number.
func (i Int) MarshalJSON() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalJSON accepts a JSON number or a string holding one. null leaves the
// value at zero.
func (i *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		i.n = nil
		return nil
	}
	text := string(data)
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("jsonbig: invalid integer string %s: %w", text, err)
		}
		text = unquoted
	}
	parsed, err := ParseInt(text)
	if err != nil {
		return err
	}
	i.n = parsed.n
	return nil
}
