package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"prospectflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type blockingPersister struct {
	started chan struct{}
	release chan error
}

func (p *blockingPersister) SaveSequence(ctx context.Context, _ models.Sequence) error {
	close(p.started)
	select {
	case err := <-p.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeEnroller struct {
	sequenceID string
	ids        []string
	err        error
}

func (e *fakeEnroller) Enroll(_ context.Context, sequenceID string, ids []string) (int, error) {
	e.sequenceID = sequenceID
	e.ids = ids
	return len(ids), e.err
}

func openPublished(t *testing.T) *Session {
	t.Helper()
	seq := sampleSequence()
	return NewRegistry().Open(NewDraft(&seq))
}

func TestSessionViewDescribesSteps(t *testing.T) {
	s := openPublished(t)
	v := s.View()

	assert.Equal(t, s.ID(), v.SessionID)
	assert.Equal(t, StateClean, v.State)
	assert.Equal(t, TabEditor, v.Tab)
	assert.Equal(t, ModalNone, v.Modal)
	assert.Equal(t, []StepView{
		{ID: "s1", Mode: ContentManual},
		{ID: "s3", Mode: ContentAIPrompt, Prompt: "nudge"},
	}, v.Steps)
}

func TestSessionUpdateWithoutDraft(t *testing.T) {
	s := NewRegistry().Open(NewDraft(nil))
	_, err := s.Update(WithName("x"))
	assert.ErrorIs(t, err, ErrNoDraft)
	assert.Empty(t, s.SequenceID())
}

func TestSessionInsertVariable(t *testing.T) {
	s := openPublished(t)
	_, err := s.OpenModal(ModalVariablePicker)
	require.NoError(t, err)

	v, caret, err := s.InsertVariable("s1", 3, 3, "{{company.name}}")
	require.NoError(t, err)
	assert.Equal(t, 19, caret)
	assert.Equal(t, ModalNone, v.Modal)
	assert.Equal(t, models.EmailStep{Subject: "Thanks", Content: "Hi {{company.name}}{{person.name.first}}"}, v.Sequence.Steps[0].Payload)
	assert.True(t, v.IsDirty)

	_, _, err = s.InsertVariable("s2", 0, 0, "{{company.name}}")
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestSessionTabsAndModalsForNewSequence(t *testing.T) {
	d := NewDraft(nil)
	d.SetDraft(sampleSequence())
	s := NewRegistry().Open(d)

	_, err := s.SetTab(TabRecipients)
	assert.ErrorIs(t, err, ErrSequenceIsNew)
	_, err = s.OpenModal(ModalEnroll)
	assert.ErrorIs(t, err, ErrSequenceIsNew)
	_, _, err = s.ConfirmEnrollment(context.Background(), &fakeEnroller{})
	assert.ErrorIs(t, err, ErrSequenceIsNew)

	v, err := s.SetTab(TabSettings)
	require.NoError(t, err)
	assert.Equal(t, TabSettings, v.Tab)

	_, err = s.SetTab("Billing")
	assert.ErrorIs(t, err, ErrUnknownTab)
	_, err = s.OpenModal("wizard")
	assert.ErrorIs(t, err, ErrUnknownModal)
}

func TestSessionPublishAndDiscard(t *testing.T) {
	s := openPublished(t)
	p := &recordingPersister{}

	_, err := s.Update(WithName("Renamed"))
	require.NoError(t, err)

	v, err := s.Publish(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StateClean, v.State)
	assert.False(t, v.IsPublishing)

	_, err = s.Update(WithName("Again"))
	require.NoError(t, err)
	v, err = s.Discard()
	require.NoError(t, err)
	assert.Equal(t, "Renamed", v.Sequence.Name)
	assert.Equal(t, StateClean, v.State)
}

func TestSessionConcurrentPublishIsRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := openPublished(t)
	_, err := s.Update(WithName("Renamed"))
	require.NoError(t, err)

	p := &blockingPersister{started: make(chan struct{}), release: make(chan error)}
	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.Publish(context.Background(), p)
	}()

	<-p.started
	assert.True(t, s.View().IsPublishing)

	// Editing stays available while the save is in flight.
	_, err = s.Update(WithDescription("edited during publish"))
	require.NoError(t, err)

	_, err = s.Publish(context.Background(), &recordingPersister{})
	assert.ErrorIs(t, err, ErrPublishInFlight)

	p.release <- nil
	wg.Wait()
	require.NoError(t, firstErr)

	v := s.View()
	assert.False(t, v.IsPublishing)
	assert.True(t, v.IsDirty, "the edit made during publish is not part of the snapshot")
}

func TestSessionPublishCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := openPublished(t)
	_, err := s.Update(WithName("Renamed"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p := &blockingPersister{started: make(chan struct{}), release: make(chan error)}
	done := make(chan error, 1)
	go func() {
		_, err := s.Publish(ctx, p)
		done <- err
	}()

	<-p.started
	cancel()
	err = <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrPersist)

	v := s.View()
	assert.False(t, v.IsPublishing)
	assert.True(t, v.IsDirty)
}

func TestSessionEnrollment(t *testing.T) {
	s := openPublished(t)
	_, err := s.OpenModal(ModalEnroll)
	require.NoError(t, err)

	s.SetCandidates(candidates())
	s.SetQuery("al")
	v := s.SelectAll()
	assert.Equal(t, []string{"1", "3"}, v.Enrollment.Selected)
	assert.True(t, v.Enrollment.CanConfirm)

	v = s.ToggleRecipient("3")
	assert.Equal(t, []string{"1"}, v.Enrollment.Selected)

	e := &fakeEnroller{}
	got, count, err := s.ConfirmEnrollment(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, got)
	assert.Equal(t, 1, count)
	assert.Equal(t, "seq-1", e.sequenceID)

	v = s.View()
	assert.Empty(t, v.Enrollment.Selected)
	assert.Empty(t, v.Enrollment.Query)
	assert.Equal(t, ModalNone, v.Modal)

	_, _, err = s.ConfirmEnrollment(context.Background(), e)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSessionEnrollmentFailureKeepsSelection(t *testing.T) {
	s := openPublished(t)
	s.SetCandidates(candidates())
	s.ToggleRecipient("2")

	_, _, err := s.ConfirmEnrollment(context.Background(), &fakeEnroller{err: errors.New("store down")})
	require.Error(t, err)
	assert.Equal(t, []string{"2"}, s.View().Enrollment.Selected)
}

func TestSessionGeneratePreview(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := openPublished(t)
	_, err := s.OpenModal(ModalAIAssistant)
	require.NoError(t, err)

	out, err := s.GeneratePreview(context.Background(), MockGenerator{}, "write a follow-up")
	require.NoError(t, err)
	assert.Contains(t, out, "write a follow-up")
	assert.Equal(t, out, s.View().AIPreview)

	_, err = s.GeneratePreview(context.Background(), MockGenerator{}, "  ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.False(t, s.View().IsGenerating)

	assert.Empty(t, s.CloseModal().AIPreview)
}

func TestSessionGenerateInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := openPublished(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.GeneratePreview(ctx, MockGenerator{Delay: time.Hour}, "slow")
		done <- err
	}()

	require.Eventually(t, func() bool { return s.View().IsGenerating }, time.Second, time.Millisecond)
	_, err := s.GeneratePreview(context.Background(), MockGenerator{}, "second")
	assert.ErrorIs(t, err, ErrGenerateInFlight)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, s.View().IsGenerating)
}

func TestMockGeneratorDelay(t *testing.T) {
	start := time.Now()
	out, err := MockGenerator{Delay: 20 * time.Millisecond}.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Contains(t, out, "hello")
}
