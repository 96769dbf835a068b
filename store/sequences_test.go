package store

import (
	"context"
	"testing"
	"time"

	"prospectflow/editor"
	"prospectflow/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSequenceIsNewDraft(t *testing.T) {
	s := newTestStore(t)
	repo := NewSequenceRepository(s)
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "New Sequence", rec.Data["name"])
	assert.Equal(t, models.SequenceStatusDraft, rec.Data["status"])
	assert.Equal(t, true, rec.Data["isDraft"])

	seq, published, err := repo.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, published)
	assert.Equal(t, "New Sequence", seq.Name)
	assert.Empty(t, seq.Steps)
	assert.Equal(t, models.DefaultSettings(), seq.Settings)
}

func TestLoadAppliesDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.CreateOne(ctx, models.ObjectSequences, map[string]any{
		"name":   "Imported",
		"status": models.SequenceStatusPublished,
		"steps": []map[string]any{
			{"id": "b", "type": "wait", "order": 4},
			{"id": "a", "type": "email", "order": 1, "subject": "Hi"},
		},
		"settings": map[string]any{
			"businessDaysOnly": false,
			"exitCriteria":     []string{"Unsubscribed", "Replied", "Bogus"},
		},
	})
	require.NoError(t, err)

	seq, published, err := NewSequenceRepository(s).Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, published)
	assert.Equal(t, []models.Step{
		{ID: "a", Order: 0, Payload: models.EmailStep{Subject: "Hi"}},
		{ID: "b", Order: 1, Payload: models.WaitStep{Days: 1}},
	}, seq.Steps)
	assert.False(t, seq.Settings.BusinessDaysOnly)
	assert.Equal(t, []models.ExitCriterion{models.ExitReplied, models.ExitUnsubscribed}, seq.Settings.ExitCriteria)
}

func TestSaveSequenceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	repo := NewSequenceRepository(s)
	ctx := context.Background()

	rec, err := repo.Create(ctx)
	require.NoError(t, err)
	seq, _, err := repo.Load(ctx, rec.ID)
	require.NoError(t, err)

	seq = editor.WithName("Demo follow-up")(seq)
	seq = editor.WithStepAdded(models.StepTypeEmail)(seq)
	seq = editor.WithStepAdded(models.StepTypeWait)(seq)
	seq = editor.WithStepAdded(models.StepTypeWait)(seq)
	seq = editor.WithStepAdded(models.StepTypeEmail)(seq)
	subject, body := "Thanks", "Hi {{person.name.first}}"
	seq = editor.WithStepUpdated(seq.Steps[0].ID, editor.StepPatch{Subject: &subject, Content: &body})(seq)
	days := 3
	seq = editor.WithStepUpdated(seq.Steps[2].ID, editor.StepPatch{WaitDays: &days})(seq)
	seq = editor.WithAIPrompt(seq.Steps[3].ID, "nudge them")(seq)
	seq = editor.WithSettings(editor.SettingsPatch{SendingWindow: &editor.SendingWindowPatch{}})(seq)

	require.NoError(t, repo.SaveSequence(ctx, seq))

	loaded, published, err := repo.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, published)
	if diff := cmp.Diff(seq, loaded, cmpopts.IgnoreFields(models.Sequence{}, "UpdatedAt", "CreatedAt")); diff != "" {
		t.Fatalf("loaded sequence mismatch (-saved +loaded):\n%s", diff)
	}

	stored, err := s.FindOne(ctx, models.ObjectSequences, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thanks", stored.Data["subject"])
	assert.Equal(t, models.SequenceStatusPublished, stored.Data["status"])
	assert.Equal(t, false, stored.Data["isDraft"])

	steps, err := repo.Steps(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, float64(0), steps[0].Data["delayDays"])
	assert.Equal(t, "Hi {{person.name.first}}", steps[0].Data["body"])
	assert.Equal(t, float64(4), steps[1].Data["delayDays"])
	assert.Equal(t, "nudge them", steps[1].Data["aiPrompt"])
	assert.Equal(t, "", steps[1].Data["body"])

	// Saving again replaces the step children instead of appending.
	seq = editor.WithStepDeleted(seq.Steps[0].ID)(seq)
	require.NoError(t, repo.SaveSequence(ctx, seq))
	steps, err = repo.Steps(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestSaveSequenceMissingRecord(t *testing.T) {
	s := newTestStore(t)
	err := NewSequenceRepository(s).SaveSequence(context.Background(), models.Sequence{ID: "ghost"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestListSequencesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	repo := NewSequenceRepository(s)
	ctx := context.Background()

	first, err := repo.Create(ctx)
	require.NoError(t, err)
	tick()
	second, err := repo.Create(ctx)
	require.NoError(t, err)

	recs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, recordIDs(recs))
}

func TestEnrollSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	repo := NewEnrollmentRepository(s)
	repo.Now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	n, err := repo.Enroll(ctx, "seq", []string{"p1", "p2", "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.Enroll(ctx, "seq", []string{"p2", "p3"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := repo.List(ctx, "seq")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, EnrollmentActive, recs[0].Data["status"])
	assert.Equal(t, float64(0), recs[0].Data["currentStepIndex"])
	assert.Equal(t, "2024-03-01T09:00:00Z", recs[0].Data["enrolledAt"])
}
