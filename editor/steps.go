package editor

import (
	"slices"

	"prospectflow/models"

	"github.com/google/uuid"
)

// Updater is a pure transformation of a sequence. It receives a private
// copy and returns the next value.
type Updater func(models.Sequence) models.Sequence

// StepPatch carries the fields of a partial step update. Fields that do not
// apply to the step's variant are ignored.
type StepPatch struct {
	WaitDays *int    `json:"waitDays,omitempty"`
	Subject  *string `json:"subject,omitempty"`
	Content  *string `json:"content,omitempty"`
}

// NewStep builds a step of the given kind with its default payload.
func NewStep(kind models.StepType, order int) (models.Step, bool) {
	step := models.Step{ID: uuid.NewString(), Order: order}
	switch kind {
	case models.StepTypeWait:
		step.Payload = models.WaitStep{Days: 1}
	case models.StepTypeEmail, "email":
		step.Payload = models.EmailStep{}
	default:
		return models.Step{}, false
	}
	return step, true
}

// AddStep appends a new step of kind. Unknown kinds leave steps unchanged.
func AddStep(steps []models.Step, kind models.StepType) []models.Step {
	out := slices.Clone(steps)
	step, ok := NewStep(kind, len(out))
	if !ok {
		return out
	}
	return append(out, step)
}

// UpdateStep merges patch into the step with the given id. Id and order
// are never changed. A missing id is a no-op.
func UpdateStep(steps []models.Step, id string, patch StepPatch) []models.Step {
	out := slices.Clone(steps)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		switch p := out[i].Payload.(type) {
		case models.WaitStep:
			if patch.WaitDays != nil {
				p.Days = max(*patch.WaitDays, 1)
			}
			out[i].Payload = p
		case models.EmailStep:
			if patch.Subject != nil {
				p.Subject = *patch.Subject
			}
			if patch.Content != nil {
				p.Content = *patch.Content
			}
			out[i].Payload = p
		}
		break
	}
	return out
}

// DeleteStep removes the step with the given id and renumbers the rest to
// their new positions. A missing id is a no-op.
func DeleteStep(steps []models.Step, id string) []models.Step {
	out := make([]models.Step, 0, len(steps))
	for _, step := range steps {
		if step.ID == id {
			continue
		}
		out = append(out, step)
	}
	if len(out) == len(steps) {
		return slices.Clone(steps)
	}
	return Renumber(out)
}

// Renumber sets each step's order to its index.
func Renumber(steps []models.Step) []models.Step {
	for i := range steps {
		steps[i].Order = i
	}
	return steps
}

// FindStep returns the step with the given id.
func FindStep(steps []models.Step, id string) (models.Step, bool) {
	for _, step := range steps {
		if step.ID == id {
			return step, true
		}
	}
	return models.Step{}, false
}

func WithStepAdded(kind models.StepType) Updater {
	return func(s models.Sequence) models.Sequence {
		s.Steps = AddStep(s.Steps, kind)
		return s
	}
}

func WithStepUpdated(id string, patch StepPatch) Updater {
	return func(s models.Sequence) models.Sequence {
		s.Steps = UpdateStep(s.Steps, id, patch)
		return s
	}
}

func WithStepDeleted(id string) Updater {
	return func(s models.Sequence) models.Sequence {
		s.Steps = DeleteStep(s.Steps, id)
		return s
	}
}

// WithName renames the sequence.
func WithName(name string) Updater {
	return func(s models.Sequence) models.Sequence {
		s.Name = name
		return s
	}
}

// WithDescription replaces the sequence description.
func WithDescription(description string) Updater {
	return func(s models.Sequence) models.Sequence {
		s.Description = description
		return s
	}
}

// WithEnabledToggled flips the enabled flag.
func WithEnabledToggled() Updater {
	return func(s models.Sequence) models.Sequence {
		s.IsEnabled = !s.IsEnabled
		return s
	}
}
