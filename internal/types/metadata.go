package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a structured side-channel for free-form key/value context,
// kept alongside human-readable description strings on Transaction and
// SubscriptionEvent so reports and tests can query by field instead of
// parsing sentences (see DESIGN NOTES, "free-form description strings").
type Metadata map[string]string

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Metadata", value)
	}

	result := make(Metadata)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(Metadata{})
	}
	return json.Marshal(m)
}
