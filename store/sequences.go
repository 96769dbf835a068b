package store

import (
	"context"
	"fmt"
	"sort"

	"prospectflow/editor"
	"prospectflow/models"
)

// SequenceRepository loads and saves sequences through a RecordStore.
type SequenceRepository struct {
	Records RecordStore
}

func NewSequenceRepository(records RecordStore) *SequenceRepository {
	return &SequenceRepository{Records: records}
}

type sequenceFields struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	IsDraft     *bool            `json:"isDraft"`
	IsEnabled   bool             `json:"isEnabled"`
	Steps       []models.Step    `json:"steps"`
	Settings    *models.Settings `json:"settings"`
}

// List returns sequence records, newest first.
func (r *SequenceRepository) List(ctx context.Context) ([]models.Record, error) {
	return r.Records.FindMany(ctx, models.ObjectSequences, Newest)
}

// Create stores a blank draft sequence.
func (r *SequenceRepository) Create(ctx context.Context) (models.Record, error) {
	return r.Records.CreateOne(ctx, models.ObjectSequences, map[string]any{
		"name":      "New Sequence",
		"status":    models.SequenceStatusDraft,
		"isDraft":   true,
		"isEnabled": false,
		"steps":     []models.Step{},
		"settings":  models.DefaultSettings(),
	})
}

// Load returns the stored sequence and whether it was ever published.
// Missing steps and settings fall back to defaults.
func (r *SequenceRepository) Load(ctx context.Context, id string) (models.Sequence, bool, error) {
	rec, err := r.Records.FindOne(ctx, models.ObjectSequences, id)
	if err != nil {
		return models.Sequence{}, false, err
	}
	return decodeSequence(rec)
}

func decodeSequence(rec models.Record) (models.Sequence, bool, error) {
	var f sequenceFields
	if err := models.DecodeRecord(rec, &f); err != nil {
		return models.Sequence{}, false, fmt.Errorf("decode sequence %s: %w", rec.ID, err)
	}

	seq := models.Sequence{
		ID:          rec.ID,
		Name:        f.Name,
		Description: f.Description,
		IsEnabled:   f.IsEnabled,
		Steps:       f.Steps,
		Settings:    models.DefaultSettings(),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if seq.Steps == nil {
		seq.Steps = []models.Step{}
	}
	sort.SliceStable(seq.Steps, func(i, j int) bool { return seq.Steps[i].Order < seq.Steps[j].Order })
	editor.Renumber(seq.Steps)

	if f.Settings != nil {
		seq.Settings = *f.Settings
		seq.Settings.ExitCriteria = models.CanonicalExitCriteria(seq.Settings.ExitCriteria)
	}

	published := f.Status != models.SequenceStatusDraft
	if f.IsDraft != nil {
		published = !*f.IsDraft
	}
	return seq, published, nil
}

// SaveSequence writes seq as the published version and rebuilds its
// sequenceSteps children, one per email step.
func (r *SequenceRepository) SaveSequence(ctx context.Context, seq models.Sequence) error {
	return r.Records.Transaction(ctx, func(tx RecordStore) error {
		if _, err := tx.UpdateOne(ctx, models.ObjectSequences, seq.ID, map[string]any{
			"name":        seq.Name,
			"description": seq.Description,
			"status":      models.SequenceStatusPublished,
			"isDraft":     false,
			"isEnabled":   seq.IsEnabled,
			"subject":     firstSubject(seq.Steps),
			"steps":       seq.Steps,
			"settings":    seq.Settings,
		}); err != nil {
			return err
		}

		if _, err := tx.DeleteMany(ctx, models.ObjectSequenceSteps, map[string]any{"sequenceId": seq.ID}); err != nil {
			return err
		}
		for _, fields := range stepRecords(seq) {
			if _, err := tx.CreateOne(ctx, models.ObjectSequenceSteps, fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// Steps returns the sequenceSteps records of a sequence in send order.
func (r *SequenceRepository) Steps(ctx context.Context, sequenceID string) ([]models.Record, error) {
	return r.Records.FindBy(ctx, models.ObjectSequenceSteps,
		map[string]any{"sequenceId": sequenceID},
		OrderBy{Field: "order", Direction: AscNullsLast})
}

func firstSubject(steps []models.Step) string {
	for _, step := range steps {
		if email, ok := step.Payload.(models.EmailStep); ok {
			return email.Subject
		}
	}
	return ""
}

// stepRecords flattens the step list into email sends. delayDays is the
// sum of the wait steps since the previous email.
func stepRecords(seq models.Sequence) []map[string]any {
	var out []map[string]any
	delay := 0
	for _, step := range seq.Steps {
		switch p := step.Payload.(type) {
		case models.WaitStep:
			delay += p.Days
		case models.EmailStep:
			fields := map[string]any{
				"sequenceId": seq.ID,
				"order":      len(out),
				"delayDays":  delay,
				"subject":    p.Subject,
				"body":       p.Content,
				"aiPrompt":   "",
			}
			if prompt, ok := editor.DecodeAIPrompt(p.Content); ok {
				fields["body"] = ""
				fields["aiPrompt"] = prompt
			}
			out = append(out, fields)
			delay = 0
		}
	}
	return out
}
