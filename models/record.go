package models

import (
	"encoding/json"
	"time"
)

// Reserved record keys that live in columns rather than in Data.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record is a row of a custom object. Field values live in Data.
type Record struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ObjectName string         `gorm:"not null;index" json:"-"`
	Data       map[string]any `gorm:"type:jsonb;serializer:json" json:"data"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Fields flattens the record into a single map including id and timestamps.
func (r Record) Fields() map[string]any {
	out := make(map[string]any, len(r.Data)+3)
	for k, v := range r.Data {
		out[k] = v
	}
	out[FieldID] = r.ID
	out[FieldCreatedAt] = r.CreatedAt
	out[FieldUpdatedAt] = r.UpdatedAt
	return out
}

// MarshalJSON renders the flattened form so API clients see plain objects.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// DecodeRecord copies the record fields into out through their JSON form.
func DecodeRecord(r Record, out any) error {
	raw, err := json.Marshal(r.Fields())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Has reports whether the record stores a value for key.
func (r Record) Has(key string) bool {
	v, ok := r.Data[key]
	return ok && v != nil
}
