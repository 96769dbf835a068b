package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepType identifies the variant carried by a Step.
type StepType string

const (
	StepTypeEmail StepType = "automated-email"
	StepTypeWait  StepType = "wait"

	// stepTypeEmailAlias is accepted on decode only.
	stepTypeEmailAlias StepType = "email"
)

// ExitCriterion is an event that removes a recipient from a sequence.
type ExitCriterion string

const (
	ExitReplied      ExitCriterion = "Replied"
	ExitOpened       ExitCriterion = "Opened"
	ExitClicked      ExitCriterion = "Clicked"
	ExitBounced      ExitCriterion = "Bounced"
	ExitUnsubscribed ExitCriterion = "Unsubscribed"
)

// ExitCriteria lists every criterion in canonical order.
var ExitCriteria = []ExitCriterion{ExitReplied, ExitOpened, ExitClicked, ExitBounced, ExitUnsubscribed}

// Valid reports whether c is a known criterion.
func (c ExitCriterion) Valid() bool {
	for _, known := range ExitCriteria {
		if c == known {
			return true
		}
	}
	return false
}

// CanonicalExitCriteria drops unknown and duplicate entries and returns the
// rest in enum order, never nil.
func CanonicalExitCriteria(in []ExitCriterion) []ExitCriterion {
	set := make(map[ExitCriterion]bool, len(in))
	for _, c := range in {
		if c.Valid() {
			set[c] = true
		}
	}
	out := []ExitCriterion{}
	for _, known := range ExitCriteria {
		if set[known] {
			out = append(out, known)
		}
	}
	return out
}

// Sequence statuses as stored on the sequence record.
const (
	SequenceStatusDraft     = "draft"
	SequenceStatusPublished = "published"
	SequenceStatusPaused    = "paused"
	SequenceStatusArchived  = "archived"
)

// Sequence is an ordered list of steps plus sending settings.
type Sequence struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Steps       []Step    `json:"steps"`
	Settings    Settings  `json:"settings"`
	IsEnabled   bool      `json:"isEnabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of s.
func (s Sequence) Clone() Sequence {
	out := s
	if s.Steps != nil {
		out.Steps = make([]Step, len(s.Steps))
		copy(out.Steps, s.Steps)
	}
	out.Settings = s.Settings.Clone()
	return out
}

// StepPayload is implemented by WaitStep and EmailStep. Payloads are
// always stored by value so copying a Step never shares state.
type StepPayload interface {
	StepType() StepType
}

// WaitStep delays the next step by a number of days.
type WaitStep struct {
	Days int
}

func (WaitStep) StepType() StepType { return StepTypeWait }

// EmailStep sends one email. Content holds plain text, text with
// {{variable}} tokens, or a single [AI_PROMPT:...] sentinel.
type EmailStep struct {
	Subject string
	Content string
}

func (EmailStep) StepType() StepType { return StepTypeEmail }

// Step is one entry in a sequence. Order is the zero-based position.
type Step struct {
	ID      string
	Order   int
	Payload StepPayload
}

// Type returns the variant of the step payload.
func (s Step) Type() StepType {
	if s.Payload == nil {
		return ""
	}
	return s.Payload.StepType()
}

type stepJSON struct {
	ID       string   `json:"id"`
	Type     StepType `json:"type"`
	Order    int      `json:"order"`
	WaitDays *int     `json:"waitDays,omitempty"`
	Subject  *string  `json:"subject,omitempty"`
	Content  *string  `json:"content,omitempty"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	out := stepJSON{ID: s.ID, Type: s.Type(), Order: s.Order}
	switch p := s.Payload.(type) {
	case WaitStep:
		days := p.Days
		out.WaitDays = &days
	case EmailStep:
		subject, content := p.Subject, p.Content
		out.Subject = &subject
		out.Content = &content
	default:
		return nil, fmt.Errorf("step %s: missing payload", s.ID)
	}
	return json.Marshal(out)
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var in stepJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	s.ID = in.ID
	s.Order = in.Order

	switch in.Type {
	case StepTypeWait:
		days := 1
		if in.WaitDays != nil && *in.WaitDays >= 1 {
			days = *in.WaitDays
		}
		s.Payload = WaitStep{Days: days}
	case StepTypeEmail, stepTypeEmailAlias:
		var email EmailStep
		if in.Subject != nil {
			email.Subject = *in.Subject
		}
		if in.Content != nil {
			email.Content = *in.Content
		}
		s.Payload = email
	default:
		return fmt.Errorf("unknown step type %q", in.Type)
	}
	return nil
}

// SendingWindow bounds the time of day emails may go out.
type SendingWindow struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// Default sending window values used when a window is first set.
const (
	DefaultWindowStart    = "09:00"
	DefaultWindowEnd      = "17:00"
	DefaultWindowTimezone = "America/New_York"
)

// Settings controls how a sequence sends.
type Settings struct {
	BusinessDaysOnly bool            `json:"businessDaysOnly"`
	ThreadEmails     bool            `json:"threadEmails"`
	SendingWindow    *SendingWindow  `json:"sendingWindow,omitempty"`
	UnsubscribeLink  string          `json:"unsubscribeLink,omitempty"`
	ExitCriteria     []ExitCriterion `json:"exitCriteria"`
}

// DefaultSettings are applied to sequences that have never stored settings.
func DefaultSettings() Settings {
	return Settings{
		BusinessDaysOnly: true,
		ThreadEmails:     true,
		ExitCriteria:     []ExitCriterion{ExitReplied, ExitBounced, ExitUnsubscribed},
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	if s.SendingWindow != nil {
		window := *s.SendingWindow
		out.SendingWindow = &window
	}
	if s.ExitCriteria != nil {
		out.ExitCriteria = make([]ExitCriterion, len(s.ExitCriteria))
		copy(out.ExitCriteria, s.ExitCriteria)
	}
	return out
}

// Recipient is read-only contact data used for enrollment.
type Recipient struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Title   string `json:"title"`
}
