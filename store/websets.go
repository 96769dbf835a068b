package store

import (
	"context"
	"fmt"

	"prospectflow/models"
)

// WebsetRepository reads and writes websets and their prospects.
type WebsetRepository struct {
	Records RecordStore
}

func NewWebsetRepository(records RecordStore) *WebsetRepository {
	return &WebsetRepository{Records: records}
}

// List returns webset records, newest first.
func (r *WebsetRepository) List(ctx context.Context) ([]models.Record, error) {
	return r.Records.FindMany(ctx, models.ObjectWebsets, Newest)
}

// Create stores a new idle webset. fields override the defaults.
func (r *WebsetRepository) Create(ctx context.Context, fields map[string]any) (models.Record, error) {
	data := models.NewWebsetFields()
	for k, v := range fields {
		data[k] = v
	}
	return r.Records.CreateOne(ctx, models.ObjectWebsets, data)
}

func (r *WebsetRepository) Get(ctx context.Context, id string) (models.Webset, error) {
	rec, err := r.Records.FindOne(ctx, models.ObjectWebsets, id)
	if err != nil {
		return models.Webset{}, err
	}
	var w models.Webset
	if err := models.DecodeRecord(rec, &w); err != nil {
		return models.Webset{}, fmt.Errorf("decode webset %s: %w", id, err)
	}
	return w, nil
}

func (r *WebsetRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := r.Records.UpdateOne(ctx, models.ObjectWebsets, id, fields)
	return err
}

// SaveProspect creates the prospect unless one with the same external item
// id already exists for the webset. It reports whether a record was made.
func (r *WebsetRepository) SaveProspect(ctx context.Context, fields map[string]any) (bool, error) {
	websetID, _ := fields["websetId"].(string)
	itemID, _ := fields["externalItemId"].(string)
	if itemID != "" {
		existing, err := r.Records.FindBy(ctx, models.ObjectProspects, map[string]any{
			"websetId":       websetID,
			"externalItemId": itemID,
		})
		if err != nil {
			return false, err
		}
		if len(existing) > 0 {
			return false, nil
		}
	}
	if _, err := r.Records.CreateOne(ctx, models.ObjectProspects, fields); err != nil {
		return false, err
	}
	return true, nil
}

// Prospects returns the prospects of a webset, best matches first.
func (r *WebsetRepository) Prospects(ctx context.Context, websetID string) ([]models.Record, error) {
	return r.Records.FindBy(ctx, models.ObjectProspects,
		map[string]any{"websetId": websetID},
		OrderBy{Field: "qualityScore", Direction: DescNullsLast})
}
