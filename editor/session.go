package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prospectflow/models"
)

// Enroller enrolls recipients into a published sequence and returns how
// many were newly enrolled.
type Enroller interface {
	Enroll(ctx context.Context, sequenceID string, recipientIDs []string) (int, error)
}

// StepView describes how an email step is authored.
type StepView struct {
	ID     string      `json:"id"`
	Mode   ContentMode `json:"mode"`
	Prompt string      `json:"prompt,omitempty"`
}

// EnrollmentView is the state of the enroll dialog.
type EnrollmentView struct {
	Query      string             `json:"query"`
	Filtered   []models.Recipient `json:"filtered"`
	Selected   []string           `json:"selected"`
	CanConfirm bool               `json:"canConfirm"`
}

// View is a read-only snapshot of a session.
type View struct {
	SessionID    string           `json:"sessionId"`
	Sequence     *models.Sequence `json:"sequence"`
	State        State            `json:"state"`
	IsDirty      bool             `json:"isDirty"`
	IsNew        bool             `json:"isNew"`
	IsPublishing bool             `json:"isPublishing"`
	IsGenerating bool             `json:"isGenerating"`
	Tab          Tab              `json:"tab"`
	Modal        Modal            `json:"modal"`
	Steps        []StepView       `json:"steps"`
	Enrollment   EnrollmentView   `json:"enrollment"`
	AIPreview    string           `json:"aiPreview,omitempty"`
}

// Session is one open editor. Its methods are safe for concurrent use;
// the external calls of publish, enrollment and generation run without
// holding the session lock.
type Session struct {
	id string

	mu         sync.Mutex
	draft      *Draft
	selection  *Selection
	tab        Tab
	modal      Modal
	generating bool
	enrolling  bool
	aiPreview  string
	lastActive time.Time
}

func newSession(id string, draft *Draft, now time.Time) *Session {
	return &Session{
		id:         id,
		draft:      draft,
		selection:  NewSelection(nil),
		tab:        TabEditor,
		modal:      ModalNone,
		lastActive: now,
	}
}

func (s *Session) ID() string { return s.id }

// SequenceID returns the id of the sequence being edited.
func (s *Session) SequenceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft.draft == nil {
		return ""
	}
	return s.draft.draft.ID
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:    s.id,
		State:        s.draft.State(),
		IsDirty:      s.draft.IsDirty(),
		IsNew:        s.draft.IsNew(),
		IsPublishing: s.draft.IsPublishing(),
		IsGenerating: s.generating,
		Tab:          s.tab,
		Modal:        s.modal,
		AIPreview:    s.aiPreview,
		Steps:        []StepView{},
		Enrollment: EnrollmentView{
			Query:      s.selection.Query(),
			Filtered:   s.selection.Filtered(),
			Selected:   s.selection.Selected(),
			CanConfirm: s.selection.CanConfirm(),
		},
	}
	if seq, ok := s.draft.Current(); ok {
		v.Sequence = &seq
		for _, step := range seq.Steps {
			email, ok := step.Payload.(models.EmailStep)
			if !ok {
				continue
			}
			sv := StepView{ID: step.ID, Mode: ModeOf(email.Content)}
			if sv.Mode == ContentAIPrompt {
				sv.Prompt, _ = DecodeAIPrompt(email.Content)
			}
			v.Steps = append(v.Steps, sv)
		}
	}
	return v
}

// Update applies u to the draft.
func (s *Session) Update(u Updater) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft.Mutate(u) {
		return s.viewLocked(), ErrNoDraft
	}
	return s.viewLocked(), nil
}

// InsertVariable inserts variable into the content of an email step at
// the given rune range and returns the caret position after it.
func (s *Session) InsertVariable(stepID string, start, end int, variable string) (View, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.draft.Current()
	if !ok {
		return s.viewLocked(), 0, ErrNoDraft
	}
	step, ok := FindStep(seq.Steps, stepID)
	if !ok {
		return s.viewLocked(), 0, ErrStepNotFound
	}
	email, ok := step.Payload.(models.EmailStep)
	if !ok {
		return s.viewLocked(), 0, ErrStepNotFound
	}

	content, caret := InsertVariable(email.Content, start, end, variable)
	s.draft.Mutate(WithStepUpdated(stepID, StepPatch{Content: &content}))
	if s.modal == ModalVariablePicker {
		s.modal = ModalNone
	}
	return s.viewLocked(), caret, nil
}

// Publish saves the draft through p and then marks it published.
func (s *Session) Publish(ctx context.Context, p Persister) (View, error) {
	s.mu.Lock()
	snapshot, err := s.draft.BeginPublish()
	s.mu.Unlock()

	if err == nil {
		err = s.persist(ctx, p, snapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(), err
}

func (s *Session) persist(ctx context.Context, p Persister, snapshot models.Sequence) error {
	saved := false
	defer func() {
		s.mu.Lock()
		s.draft.EndPublish(snapshot, saved)
		s.mu.Unlock()
	}()

	if err := p.SaveSequence(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	saved = true
	return nil
}

// Discard reverts the draft to the published snapshot.
func (s *Session) Discard() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.draft.Discard()
	return s.viewLocked(), err
}

// SetTab switches tabs. The recipients tab needs a published sequence.
func (s *Session) SetTab(t Tab) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.Valid() {
		return s.viewLocked(), ErrUnknownTab
	}
	if t == TabRecipients && s.draft.IsNew() {
		return s.viewLocked(), ErrSequenceIsNew
	}
	s.tab = t
	return s.viewLocked(), nil
}

// OpenModal opens a dialog. The enroll dialog needs a published sequence.
func (s *Session) OpenModal(m Modal) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !m.Valid() {
		return s.viewLocked(), ErrUnknownModal
	}
	if m == ModalEnroll && s.draft.IsNew() {
		return s.viewLocked(), ErrSequenceIsNew
	}
	s.modal = m
	if m != ModalAIAssistant {
		s.aiPreview = ""
	}
	return s.viewLocked(), nil
}

func (s *Session) CloseModal() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modal = ModalNone
	s.aiPreview = ""
	return s.viewLocked()
}

// SetCandidates loads the recipients offered by the enroll dialog.
func (s *Session) SetCandidates(candidates []models.Recipient) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SetCandidates(candidates)
	return s.viewLocked()
}

func (s *Session) SetQuery(q string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SetQuery(q)
	return s.viewLocked()
}

func (s *Session) ToggleRecipient(id string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Toggle(id)
	return s.viewLocked()
}

func (s *Session) SelectAll() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SelectAll()
	return s.viewLocked()
}

func (s *Session) ClearAll() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.ClearAll()
	return s.viewLocked()
}

// ConfirmEnrollment hands the selection to e. On success the selection is
// cleared and the enroll dialog closes.
func (s *Session) ConfirmEnrollment(ctx context.Context, e Enroller) ([]string, int, error) {
	s.mu.Lock()
	if s.draft.IsNew() || s.draft.draft == nil {
		s.mu.Unlock()
		return nil, 0, ErrSequenceIsNew
	}
	if s.enrolling {
		s.mu.Unlock()
		return nil, 0, ErrEnrollInFlight
	}
	ids, err := s.selection.Confirm()
	if err != nil {
		s.mu.Unlock()
		return nil, 0, err
	}
	sequenceID := s.draft.draft.ID
	s.enrolling = true
	s.mu.Unlock()

	enrolled := false
	defer func() {
		s.mu.Lock()
		s.enrolling = false
		if enrolled {
			s.selection.ClearAll()
			s.selection.SetQuery("")
			if s.modal == ModalEnroll {
				s.modal = ModalNone
			}
		}
		s.mu.Unlock()
	}()

	count, err := e.Enroll(ctx, sequenceID, ids)
	if err != nil {
		return ids, 0, err
	}
	enrolled = true
	return ids, count, nil
}

// GeneratePreview runs g for prompt and keeps the result for the AI
// assistant dialog. Only one generation runs at a time.
func (s *Session) GeneratePreview(ctx context.Context, g Generator, prompt string) (string, error) {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return "", ErrGenerateInFlight
	}
	s.generating = true
	s.mu.Unlock()

	var preview string
	defer func() {
		s.mu.Lock()
		s.generating = false
		if preview != "" {
			s.aiPreview = preview
		}
		s.mu.Unlock()
	}()

	out, err := g.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	preview = out
	return out, nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
