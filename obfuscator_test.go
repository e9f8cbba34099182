package snowflake

import (
	"encoding/json"
	"math"
	"testing"
)

func withObfuscator(t *testing.T, key int64) {
	t.Helper()
	DefaultObfuscator = NewObfuscator(key)
	t.Cleanup(func() { DefaultObfuscator = nil })
}

func TestObfuscation(t *testing.T) {
	withObfuscator(t, 0x123456789ABCDEF0)
	id := Must(NewGenerator(5, WithLogger(quietLogger())).Create())

	for _, tt := range codecFormats {
		s := id.Format(tt.format)
		got, err := tt.parse(s)
		if err != nil {
			t.Fatalf("parse(%q) for %s: %v", s, tt.format, err)
		}
		if got != id {
			t.Errorf("%s roundtrip = %d, want %d", tt.format, got, id)
		}
	}

	s := id.String()
	DefaultObfuscator = nil
	raw, err := Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	if raw == id {
		t.Error("obfuscated string parsed to the raw ID without the key")
	}
}

func TestObfuscationJSON(t *testing.T) {
	withObfuscator(t, 0x1EADBEEFCAFEBABE)
	id := Must(NewGenerator(1, WithLogger(quietLogger())).Create())

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatal(err)
	}
	var got ID
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("JSON roundtrip = %d, want %d", got, id)
	}
}

func TestObfuscationKeepsComponents(t *testing.T) {
	withObfuscator(t, 0x7EDCBA9876543210)
	id := Must(NewGenerator(5, WithLogger(quietLogger())).Create())

	if id.Node() != 5 {
		t.Errorf("Node() = %d, want 5", id.Node())
	}
	if restored, _ := FromBytes(id.Bytes()); restored != id {
		t.Error("Bytes() is not the raw value")
	}
}

func TestObfuscatorKeepsSign(t *testing.T) {
	o := NewObfuscator(-1)
	id := StandardLayout.Pack(123456789, 5, 6)

	obf := o.Obfuscate(id)
	if obf < 0 {
		t.Errorf("Obfuscate(%d) = %d, want non-negative", id, obf)
	}
	if o.Deobfuscate(obf) != id {
		t.Error("Deobfuscate(Obfuscate(id)) != id")
	}
}

func TestSetObfuscator(t *testing.T) {
	t.Cleanup(func() { DefaultObfuscator = nil })

	SetObfuscator(42)
	if DefaultObfuscator == nil {
		t.Fatal("SetObfuscator(42) left DefaultObfuscator nil")
	}
	SetObfuscator(math.MinInt64)
	if DefaultObfuscator != nil {
		t.Error("a key with only the sign bit should disable obfuscation")
	}
}

func TestObfuscatorMethods(t *testing.T) {
	o := NewObfuscator(0x1111111111111111)
	id := ID(0x2222222222222222)

	obf := o.Obfuscate(id)
	if want := ID(0x3333333333333333); obf != want {
		t.Errorf("Obfuscate = %x, want %x", obf, want)
	}
	if o.Deobfuscate(obf) != id {
		t.Error("Deobfuscate(Obfuscate(id)) != id")
	}
}
