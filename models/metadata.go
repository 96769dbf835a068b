package models

import "time"

// FieldType is the metadata type of a custom object field.
type FieldType string

const (
	FieldTypeText     FieldType = "TEXT"
	FieldTypeNumber   FieldType = "NUMBER"
	FieldTypeBoolean  FieldType = "BOOLEAN"
	FieldTypeSelect   FieldType = "SELECT"
	FieldTypeRelation FieldType = "RELATION"
	FieldTypeLinks    FieldType = "LINKS"
	FieldTypeDateTime FieldType = "DATE_TIME"
	FieldTypeRawJSON  FieldType = "RAW_JSON"
)

// ObjectMetadata describes a custom object. NameSingular is the api name.
type ObjectMetadata struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NameSingular  string `gorm:"not null;uniqueIndex" json:"nameSingular"`
	NamePlural    string `gorm:"not null" json:"namePlural"`
	LabelSingular string `json:"labelSingular"`
	LabelPlural   string `json:"labelPlural"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	IsCustom      bool   `json:"isCustom"`
	IsActive      bool   `json:"isActive"`
	IsSystem      bool   `json:"isSystem"`

	Fields []FieldMetadata `gorm:"foreignKey:ObjectMetadataID" json:"fields,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FieldMetadata describes one field of a custom object.
type FieldMetadata struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ObjectMetadataID string    `gorm:"not null;index" json:"objectMetadataId"`
	Name             string    `gorm:"not null" json:"name"`
	Label            string    `json:"label"`
	Type             FieldType `gorm:"not null" json:"type"`
	Description      string    `json:"description"`
	Options          []string  `gorm:"type:jsonb;serializer:json" json:"options,omitempty"`
	DefaultValue     string    `json:"defaultValue,omitempty"`
	IsNullable       bool      `json:"isNullable"`
	IsActive         bool      `json:"isActive"`
	IsCustom         bool      `json:"isCustom"`
	IsSystem         bool      `json:"isSystem"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tables lists every model the service migrates.
func Tables() []any {
	return []any{
		&ObjectMetadata{},
		&FieldMetadata{},
		&Record{},
	}
}
