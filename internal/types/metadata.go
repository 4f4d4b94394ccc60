package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a free-form set of string pairs attached to invoices and
// payments, stored as a jsonb column.
type Metadata map[string]string

// Scan decodes a jsonb column into the map. A NULL column yields an
// empty, non-nil map so callers can index without checking.
func (m *Metadata) Scan(src interface{}) error {
	out := make(Metadata)
	switch v := src.(type) {
	case nil:
	case []byte:
		if err := json.Unmarshal(v, &out); err != nil {
			return err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return err
		}
	default:
		return fmt.Errorf("metadata: cannot scan %T", src)
	}
	*m = out
	return nil
}

// Value serializes the map for storage; a nil map is written as {}.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(Metadata{})
	}
	return json.Marshal(m)
}
