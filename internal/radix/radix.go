// Package radix encodes unsigned 64-bit integers as positional strings over
// a fixed alphabet. It backs the base58 and Crockford base32 ID formats.
package radix

import (
	"errors"
	"math/bits"
)

var (
	// ErrInvalidChar is returned when a string contains a character outside the alphabet.
	ErrInvalidChar = errors.New("radix: invalid character")
	// ErrOverflow is returned when a decoded value does not fit in 64 bits.
	ErrOverflow = errors.New("radix: value overflows 64 bits")
)

// Encoding is an alphabet together with its reverse lookup table.
type Encoding struct {
	alphabet string
	base     uint64
	lookup   [256]int16
	skip     byte
}

// New builds an Encoding from alphabet. The alphabet length is the radix.
func New(alphabet string) *Encoding {
	e := &Encoding{alphabet: alphabet, base: uint64(len(alphabet))}
	for i := range e.lookup {
		e.lookup[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		e.lookup[alphabet[i]] = int16(i)
	}
	return e
}

// Alias makes c decode to the same digit as target.
func (e *Encoding) Alias(c, target byte) *Encoding {
	e.lookup[c] = e.lookup[target]
	return e
}

// Skip makes the decoder ignore c, e.g. a grouping hyphen.
func (e *Encoding) Skip(c byte) *Encoding {
	e.skip = c
	return e
}

// Encode returns the representation of n. Zero encodes as the first digit.
func (e *Encoding) Encode(n uint64) string {
	if n == 0 {
		return e.alphabet[:1]
	}
	var buf [64]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = e.alphabet[n%e.base]
		n /= e.base
	}
	return string(buf[i:])
}

// Decode parses s back into its value.
func (e *Encoding) Decode(s string) (uint64, error) {
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if e.skip != 0 && c == e.skip {
			continue
		}
		d := e.lookup[c]
		if d < 0 {
			return 0, ErrInvalidChar
		}
		hi, lo := bits.Mul64(n, e.base)
		if hi != 0 {
			return 0, ErrOverflow
		}
		sum, carry := bits.Add64(lo, uint64(d), 0)
		if carry != 0 {
			return 0, ErrOverflow
		}
		n = sum
	}
	return n, nil
}

// Base58 uses the Bitcoin alphabet (no 0, O, I or l).
var Base58 = New("123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz")

// Crockford is lower-case Crockford base32. Decoding is case-insensitive,
// maps I and L to 1 and O to 0, and ignores hyphens.
var Crockford = crockford()

func crockford() *Encoding {
	const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
	e := New(alphabet)
	for i := 0; i < len(alphabet); i++ {
		if c := alphabet[i]; c >= 'a' && c <= 'z' {
			e.Alias(c-'a'+'A', c)
		}
	}
	return e.Alias('I', '1').Alias('i', '1').
		Alias('L', '1').Alias('l', '1').
		Alias('O', '0').Alias('o', '0').
		Skip('-')
}
