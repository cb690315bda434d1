package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Payload carries schema-less JSON (insight data, audit snapshots) between
// the API and the database without re-interpreting it. The bytes are stored
// and returned exactly as received.
type Payload []byte

func NewPayload(v any) (Payload, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return Payload(data), nil
}

func (p Payload) IsZero() bool {
	return len(p) == 0
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	if p == nil {
		return fmt.Errorf("cannot unmarshal into nil Payload")
	}
	if string(data) == "null" {
		*p = nil
		return nil
	}
	*p = append((*p)[0:0], data...)
	return nil
}

// Value stores NULL for an empty payload so nullable jsonb columns stay NULL.
func (p Payload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	if !json.Valid(p) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return []byte(p), nil
}

func (p *Payload) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append((*p)[0:0], v...)
	case string:
		*p = Payload(v)
	default:
		return fmt.Errorf("unsupported payload source type %T", src)
	}
	return nil
}
