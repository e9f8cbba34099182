package snowflake

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"encoding/base64"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paraglidehq/snowflake/internal/radix"
)

var (
	_ fmt.Stringer               = ID(0)
	_ driver.Valuer              = ID(0)
	_ sql.Scanner                = (*ID)(nil)
	_ encoding.TextMarshaler     = ID(0)
	_ encoding.TextUnmarshaler   = (*ID)(nil)
	_ encoding.BinaryMarshaler   = ID(0)
	_ encoding.BinaryUnmarshaler = (*ID)(nil)
	_ json.Marshaler             = ID(0)
	_ json.Unmarshaler           = (*ID)(nil)
	_ gob.GobEncoder             = ID(0)
	_ gob.GobDecoder             = (*ID)(nil)
)

type Format string

const (
	FormatBase58    Format = "base58"
	FormatCrockford Format = "crockford"
	FormatBase64    Format = "base64"
	FormatHash      Format = "hash"
	FormatDecimal   Format = "decimal"
)

// DefaultFormat is used by String, MarshalText, MarshalJSON and Parse.
var DefaultFormat = FormatBase58

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatBase58, FormatCrockford, FormatBase64, FormatHash, FormatDecimal:
		return f, nil
	case "hex":
		return FormatHash, nil
	default:
		return "", fmt.Errorf("snowflake: unknown format %q", s)
	}
}

// ID is a 64-bit millisecond-precision time-ordered identifier.
type ID int64

var Nil ID = 0

func (id ID) Int64() int64 {
	return int64(id)
}

func (id ID) IsNil() bool {
	return id == Nil
}

// Bytes returns the ID as an 8-byte big-endian slice.
func (id ID) Bytes() []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), uint64(id))
}

// Hash returns the ID as an 8-byte big-endian array.
func (id ID) Hash() [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b
}

// Timestamp decodes the creation time. Timestamp, Millis, Node and Seq all
// assume StandardLayout; decode IDs minted with NoNode through NoNodeLayout.
func (id ID) Timestamp() time.Time {
	return StandardLayout.Timestamp(id)
}

// Millis decodes the creation time in Unix milliseconds.
func (id ID) Millis() int64 {
	return StandardLayout.Millis(id)
}

func (id ID) Node() int64 {
	return StandardLayout.Node(id)
}

func (id ID) Seq() int64 {
	return StandardLayout.Sequence(id)
}

func (id ID) String() string {
	return id.Format(DefaultFormat)
}

// Format renders the ID, obfuscated when DefaultObfuscator is set.
func (id ID) Format(f Format) string {
	v := obfuscate(id)
	switch f {
	case FormatDecimal:
		return strconv.FormatInt(int64(v), 10)
	case FormatBase64:
		return base64.StdEncoding.EncodeToString(v.Bytes())
	case FormatHash:
		return strconv.FormatUint(uint64(v), 16)
	case FormatCrockford:
		return radix.Crockford.Encode(uint64(v))
	default:
		return radix.Base58.Encode(uint64(v))
	}
}

// MarshalText implements encoding.TextMarshaler
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON accepts null, a bare number or a string in DefaultFormat.
func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = Nil
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return errors.New("snowflake: invalid JSON value")
		}
		*id = ID(n)
		return nil
	}
	if len(b) < 2 || b[len(b)-1] != '"' {
		return errors.New("snowflake: invalid JSON string")
	}
	return id.UnmarshalText(b[1 : len(b)-1])
}

// Value implements driver.Valuer for database storage
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}

// Scan implements sql.Scanner for database retrieval
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = Nil
		return nil
	case ID:
		*id = v
		return nil
	case int64:
		*id = ID(v)
		return nil
	case []byte:
		return id.UnmarshalText(v)
	case string:
		return id.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("snowflake: cannot scan %T", src)
	}
}

// Parse parses a string in DefaultFormat.
func Parse(s string) (ID, error) {
	return ParseFormatted(s, DefaultFormat)
}

// ParseFormatted parses s as format f, reversing any obfuscation.
func ParseFormatted(s string, f Format) (ID, error) {
	if len(s) == 0 {
		return Nil, errors.New("snowflake: empty string")
	}
	var (
		id  ID
		err error
	)
	switch f {
	case FormatDecimal:
		id, err = parseDecimal(s)
	case FormatBase64:
		id, err = parseBase64(s)
	case FormatHash:
		id, err = parseHash(s)
	case FormatCrockford:
		id, err = parseRadix(s, radix.Crockford)
	default:
		id, err = parseRadix(s, radix.Base58)
	}
	if err != nil {
		return Nil, err
	}
	return deobfuscate(id), nil
}

func ParseBase58(s string) (ID, error)    { return ParseFormatted(s, FormatBase58) }
func ParseCrockford(s string) (ID, error) { return ParseFormatted(s, FormatCrockford) }
func ParseBase64(s string) (ID, error)    { return ParseFormatted(s, FormatBase64) }
func ParseHash(s string) (ID, error)      { return ParseFormatted(s, FormatHash) }
func ParseDecimal(s string) (ID, error)   { return ParseFormatted(s, FormatDecimal) }

func parseRadix(s string, enc *radix.Encoding) (ID, error) {
	n, err := enc.Decode(s)
	if err != nil {
		return Nil, fmt.Errorf("snowflake: %w", err)
	}
	return ID(n), nil
}

// parseBase64 also accepts the URL-safe alphabet, for IDs carried in paths.
func parseBase64(s string) (ID, error) {
	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	b, err := enc.DecodeString(s)
	if err != nil {
		return Nil, fmt.Errorf("snowflake: invalid base64: %w", err)
	}
	return FromBytes(b)
}

func parseHash(s string) (ID, error) {
	if len(s) > 16 {
		return Nil, errors.New("snowflake: hex string must be 1-16 characters")
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Nil, errors.New("snowflake: invalid hex string")
	}
	return ID(n), nil
}

func parseDecimal(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Nil, fmt.Errorf("snowflake: invalid decimal: %w", err)
	}
	return ID(n), nil
}

// Parse parses a string into the ID receiver.
func (id *ID) Parse(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// FromString is an alias for Parse.
func FromString(s string) (ID, error) {
	return Parse(s)
}

// FromStringOrNil returns Nil when s does not parse.
func FromStringOrNil(s string) ID {
	id, err := Parse(s)
	if err != nil {
		return Nil
	}
	return id
}

// FromBytes returns an ID from an 8-byte big-endian slice.
func FromBytes(b []byte) (ID, error) {
	if len(b) != 8 {
		return Nil, fmt.Errorf("snowflake: ID must be exactly 8 bytes, got %d", len(b))
	}
	return ID(binary.BigEndian.Uint64(b)), nil
}

// FromBytesOrNil returns Nil when b is not 8 bytes long.
func FromBytesOrNil(b []byte) ID {
	id, err := FromBytes(b)
	if err != nil {
		return Nil
	}
	return id
}

func FromInt64(n int64) ID {
	return ID(n)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (id ID) MarshalBinary() ([]byte, error) {
	return id.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *ID) UnmarshalBinary(data []byte) error {
	parsed, err := FromBytes(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// GobEncode implements gob.GobEncoder.
func (id ID) GobEncode() ([]byte, error) {
	return id.MarshalBinary()
}

// GobDecode implements gob.GobDecoder.
func (id *ID) GobDecode(data []byte) error {
	return id.UnmarshalBinary(data)
}

// Must panics if err is not nil
func Must(id ID, err error) ID {
	if err != nil {
		panic(err)
	}
	return id
}
