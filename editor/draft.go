package editor

import (
	"context"
	"errors"
	"fmt"

	"prospectflow/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var (
	ErrNoDraft         = errors.New("no draft to edit")
	ErrNoPublished     = errors.New("no published version to revert to")
	ErrPublishInFlight = errors.New("publish already in progress")
	ErrPersist         = errors.New("failed to save sequence")
)

// State is the dirty state of a Draft.
type State string

const (
	StateClean State = "clean"
	StateDirty State = "dirty"
)

// Persister saves a published sequence.
type Persister interface {
	SaveSequence(ctx context.Context, seq models.Sequence) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, seq models.Sequence) error

func (f PersisterFunc) SaveSequence(ctx context.Context, seq models.Sequence) error {
	return f(ctx, seq)
}

// Draft tracks an editable copy of a sequence against its last published
// snapshot. It is not safe for concurrent use.
type Draft struct {
	draft      *models.Sequence
	published  *models.Sequence
	publishing bool
}

// NewDraft starts a draft. A non-nil initial sequence is treated as
// published, so the draft starts clean. With nil there is no draft until
// SetDraft is called.
func NewDraft(initial *models.Sequence) *Draft {
	d := &Draft{}
	if initial != nil {
		draft := initial.Clone()
		published := initial.Clone()
		d.draft = &draft
		d.published = &published
	}
	return d
}

// SetDraft installs seq as the draft without touching the published
// snapshot.
func (d *Draft) SetDraft(seq models.Sequence) {
	draft := seq.Clone()
	d.draft = &draft
}

// HasDraft reports whether a draft exists.
func (d *Draft) HasDraft() bool { return d.draft != nil }

// IsNew reports whether the sequence was never published.
func (d *Draft) IsNew() bool { return d.published == nil }

// IsPublishing reports whether a publish is in flight.
func (d *Draft) IsPublishing() bool { return d.publishing }

// Current returns a copy of the draft.
func (d *Draft) Current() (models.Sequence, bool) {
	if d.draft == nil {
		return models.Sequence{}, false
	}
	return d.draft.Clone(), true
}

// Published returns a copy of the published snapshot.
func (d *Draft) Published() (models.Sequence, bool) {
	if d.published == nil {
		return models.Sequence{}, false
	}
	return d.published.Clone(), true
}

// IsDirty reports whether the draft differs structurally from the
// published snapshot. A draft that was never published is dirty.
func (d *Draft) IsDirty() bool {
	if d.draft == nil {
		return false
	}
	if d.published == nil {
		return true
	}
	return !Equal(*d.draft, *d.published)
}

// State returns StateDirty when IsDirty holds and StateClean otherwise.
func (d *Draft) State() State {
	if d.IsDirty() {
		return StateDirty
	}
	return StateClean
}

// Mutate applies u to a copy of the draft and keeps the result. It reports
// false and does nothing when there is no draft.
func (d *Draft) Mutate(u Updater) bool {
	if d.draft == nil || u == nil {
		return false
	}
	next := u(d.draft.Clone())
	d.draft = &next
	return true
}

// BeginPublish marks a publish in flight and returns the snapshot to
// persist. Every successful call must be followed by EndPublish.
func (d *Draft) BeginPublish() (models.Sequence, error) {
	if d.draft == nil {
		return models.Sequence{}, ErrNoDraft
	}
	if d.publishing {
		return models.Sequence{}, ErrPublishInFlight
	}
	d.publishing = true
	return d.draft.Clone(), nil
}

// EndPublish clears the in-flight flag. When saved is true the snapshot
// becomes the published version.
func (d *Draft) EndPublish(snapshot models.Sequence, saved bool) {
	d.publishing = false
	if saved {
		published := snapshot.Clone()
		d.published = &published
	}
}

// Publish persists the draft and, only once that succeeds, makes it the
// published snapshot.
func (d *Draft) Publish(ctx context.Context, p Persister) error {
	snapshot, err := d.BeginPublish()
	if err != nil {
		return err
	}

	saved := false
	defer func() { d.EndPublish(snapshot, saved) }()

	if err := p.SaveSequence(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	saved = true
	return nil
}

// Discard reverts the draft to the published snapshot.
func (d *Draft) Discard() error {
	if d.published == nil {
		return ErrNoPublished
	}
	draft := d.published.Clone()
	d.draft = &draft
	return nil
}

var sequenceCompare = []cmp.Option{
	cmpopts.EquateEmpty(),
}

// Equal compares two sequences field by field. Nil and empty collections
// are equal.
func Equal(a, b models.Sequence) bool {
	return cmp.Equal(a, b, sequenceCompare...)
}

// Diff returns a human readable diff between two sequences.
func Diff(a, b models.Sequence) string {
	return cmp.Diff(a, b, sequenceCompare...)
}
