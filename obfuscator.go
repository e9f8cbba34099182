package snowflake

import "math"

// DefaultObfuscator, when set, is applied to every external representation
// (String, Format, JSON, text) and reversed by Parse. Int64, Bytes, Value and
// the decoding accessors always see the raw value. Set it once at startup;
// the CLI and HTTP server install it from the obfuscationKey setting.
var DefaultObfuscator *Obfuscator

// Obfuscator XORs IDs with a secret mask so that published IDs do not reveal
// their creation time, node or sequence. The sign bit is never flipped:
// obfuscated IDs stay non-negative, like the IDs they stand for.
type Obfuscator struct {
	mask int64
}

// NewObfuscator builds an Obfuscator from key. Only the low 63 bits of key
// are used.
func NewObfuscator(key int64) *Obfuscator {
	return &Obfuscator{mask: key & math.MaxInt64}
}

// SetObfuscator installs DefaultObfuscator with key. A zero key removes it.
func SetObfuscator(key int64) {
	if key&math.MaxInt64 == 0 {
		DefaultObfuscator = nil
		return
	}
	DefaultObfuscator = NewObfuscator(key)
}

func (o *Obfuscator) Obfuscate(id ID) ID   { return id ^ ID(o.mask) }
func (o *Obfuscator) Deobfuscate(id ID) ID { return id ^ ID(o.mask) }

func obfuscate(id ID) ID {
	if DefaultObfuscator == nil {
		return id
	}
	return DefaultObfuscator.Obfuscate(id)
}

func deobfuscate(id ID) ID {
	if DefaultObfuscator == nil {
		return id
	}
	return DefaultObfuscator.Deobfuscate(id)
}
