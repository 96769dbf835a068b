package models

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Object api names created by the bootstrap.
const (
	ObjectWebsets             = "websets"
	ObjectProspects           = "prospects"
	ObjectSequences           = "sequences"
	ObjectSequenceSteps       = "sequenceSteps"
	ObjectSequenceEnrollments = "sequenceEnrollments"
)

//go:embed objects.yaml
var objectDefinitionsYAML []byte

// FieldDefinition is one field of an ObjectDefinition.
type FieldDefinition struct {
	Name         string    `yaml:"name"`
	Label        string    `yaml:"label"`
	Type         FieldType `yaml:"type"`
	Description  string    `yaml:"description,omitempty"`
	Options      []string  `yaml:"options,omitempty"`
	DefaultValue string    `yaml:"defaultValue,omitempty"`
}

// ObjectDefinition is the declarative form of a custom object.
type ObjectDefinition struct {
	DisplayName string            `yaml:"displayName"`
	PluralName  string            `yaml:"pluralName"`
	APIName     string            `yaml:"apiName"`
	Description string            `yaml:"description"`
	Fields      []FieldDefinition `yaml:"fields"`
}

// EnsureResult reports what EnsureObjects did for one object.
type EnsureResult struct {
	APIName string `json:"apiName"`
	Created bool   `json:"created"`
	Fields  int    `json:"fields"`
}

// DefaultObjectDefinitions returns the bundled object definitions.
func DefaultObjectDefinitions() ([]ObjectDefinition, error) {
	var defs []ObjectDefinition
	if err := yaml.Unmarshal(objectDefinitionsYAML, &defs); err != nil {
		return nil, fmt.Errorf("parse object definitions: %w", err)
	}
	for i, def := range defs {
		if def.APIName == "" {
			return nil, fmt.Errorf("object definition %d: api name is required", i+1)
		}
	}
	return defs, nil
}

// EnsureObjects creates every object (and its fields) whose api name does
// not exist yet. Existing objects are left untouched.
func EnsureObjects(ctx context.Context, db *gorm.DB, defs []ObjectDefinition) ([]EnsureResult, error) {
	results := make([]EnsureResult, 0, len(defs))
	for _, def := range defs {
		result, err := ensureObject(ctx, db, def)
		if err != nil {
			return results, fmt.Errorf("ensure object %s: %w", def.APIName, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func ensureObject(ctx context.Context, db *gorm.DB, def ObjectDefinition) (EnsureResult, error) {
	result := EnsureResult{APIName: def.APIName}

	var existing ObjectMetadata
	err := db.WithContext(ctx).Where("name_singular = ?", def.APIName).First(&existing).Error
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return result, err
	}

	object := ObjectMetadata{
		ID:            uuid.NewString(),
		NameSingular:  def.APIName,
		NamePlural:    def.PluralName,
		LabelSingular: def.DisplayName,
		LabelPlural:   def.PluralName,
		Description:   def.Description,
		Icon:          "IconTarget",
		IsCustom:      true,
		IsActive:      true,
	}
	for _, field := range def.Fields {
		object.Fields = append(object.Fields, FieldMetadata{
			ID:           uuid.NewString(),
			Name:         field.Name,
			Label:        field.Label,
			Type:         field.Type,
			Description:  field.Description,
			Options:      field.Options,
			DefaultValue: field.DefaultValue,
			IsNullable:   true,
			IsActive:     true,
			IsCustom:     true,
		})
	}

	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&object).Error
	}); err != nil {
		return result, err
	}

	result.Created = true
	result.Fields = len(object.Fields)
	return result, nil
}
