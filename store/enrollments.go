package store

import (
	"context"
	"time"

	"prospectflow/models"
)

// Enrollment statuses.
const (
	EnrollmentActive    = "active"
	EnrollmentPaused    = "paused"
	EnrollmentCompleted = "completed"
	EnrollmentFailed    = "failed"
)

// EnrollmentRepository writes sequenceEnrollments records.
type EnrollmentRepository struct {
	Records RecordStore
	Now     func() time.Time
}

func NewEnrollmentRepository(records RecordStore) *EnrollmentRepository {
	return &EnrollmentRepository{Records: records, Now: time.Now}
}

// Enroll creates an active enrollment for every person not already
// enrolled in the sequence and returns how many were created.
func (r *EnrollmentRepository) Enroll(ctx context.Context, sequenceID string, personIDs []string) (int, error) {
	created := 0
	err := r.Records.Transaction(ctx, func(tx RecordStore) error {
		existing, err := tx.FindBy(ctx, models.ObjectSequenceEnrollments, map[string]any{"sequenceId": sequenceID})
		if err != nil {
			return err
		}
		enrolled := make(map[string]bool, len(existing))
		for _, rec := range existing {
			if id, ok := rec.Data["personId"].(string); ok {
				enrolled[id] = true
			}
		}

		now := r.Now().UTC().Format(time.RFC3339)
		for _, personID := range personIDs {
			if enrolled[personID] {
				continue
			}
			if _, err := tx.CreateOne(ctx, models.ObjectSequenceEnrollments, map[string]any{
				"sequenceId":       sequenceID,
				"personId":         personID,
				"status":           EnrollmentActive,
				"currentStepIndex": 0,
				"enrolledAt":       now,
			}); err != nil {
				return err
			}
			enrolled[personID] = true
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// List returns the enrollments of a sequence, oldest first.
func (r *EnrollmentRepository) List(ctx context.Context, sequenceID string) ([]models.Record, error) {
	return r.Records.FindBy(ctx, models.ObjectSequenceEnrollments,
		map[string]any{"sequenceId": sequenceID},
		OrderBy{Field: "enrolledAt", Direction: AscNullsLast})
}
