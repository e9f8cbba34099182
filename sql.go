package snowflake

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"encoding/json"
)

var (
	_ driver.Valuer            = NullID{}
	_ sql.Scanner              = (*NullID)(nil)
	_ json.Marshaler           = NullID{}
	_ json.Unmarshaler         = (*NullID)(nil)
	_ encoding.TextMarshaler   = NullID{}
	_ encoding.TextUnmarshaler = (*NullID)(nil)
)

// NullID is an optional ID, for nullable bigint or text columns and
// optional JSON fields. Nil, SQL NULL, JSON null, "" and empty text all
// mean "no ID".
type NullID struct {
	ID    ID
	Valid bool
}

// NullIDFrom wraps id, treating Nil as absent.
func NullIDFrom(id ID) NullID {
	return NullID{ID: id, Valid: !id.IsNil()}
}

// Ptr returns nil when n is not valid.
func (n NullID) Ptr() *ID {
	if !n.Valid {
		return nil
	}
	id := n.ID
	return &id
}

func (n NullID) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID.Value()
}

func (n *NullID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = NullID{}
		return nil
	case string:
		if v == "" {
			*n = NullID{}
			return nil
		}
	case []byte:
		if len(v) == 0 {
			*n = NullID{}
			return nil
		}
	}
	return n.set(n.ID.Scan(src))
}

func (n NullID) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.ID.MarshalJSON()
}

func (n *NullID) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "null", `""`:
		*n = NullID{}
		return nil
	}
	return n.set(n.ID.UnmarshalJSON(b))
}

func (n NullID) MarshalText() ([]byte, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID.MarshalText()
}

func (n *NullID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*n = NullID{}
		return nil
	}
	return n.set(n.ID.UnmarshalText(b))
}

// set records the outcome of decoding into n.ID.
func (n *NullID) set(err error) error {
	if err != nil {
		*n = NullID{}
		return err
	}
	n.Valid = true
	return nil
}
