package store

import (
	"context"
	"fmt"

	"prospectflow/models"
)

// ProspectDirectory exposes person prospects as enrollment recipients.
type ProspectDirectory struct {
	Records RecordStore
}

func NewProspectDirectory(records RecordStore) *ProspectDirectory {
	return &ProspectDirectory{Records: records}
}

// Recipients returns every person prospect that has an email address,
// sorted by name.
func (d *ProspectDirectory) Recipients(ctx context.Context) ([]models.Recipient, error) {
	recs, err := d.Records.FindBy(ctx, models.ObjectProspects,
		map[string]any{"entityType": models.ScopePerson},
		OrderBy{Field: "personName", Direction: AscNullsLast})
	if err != nil {
		return nil, err
	}

	out := make([]models.Recipient, 0, len(recs))
	for _, rec := range recs {
		var p models.Prospect
		if err := models.DecodeRecord(rec, &p); err != nil {
			return nil, fmt.Errorf("decode prospect %s: %w", rec.ID, err)
		}
		if p.Email == "" {
			continue
		}
		out = append(out, p.Recipient())
	}
	return out, nil
}
