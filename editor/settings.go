package editor

import (
	"prospectflow/models"
	"prospectflow/utils"
)

// SendingWindowPatch is a partial sending window. Missing fields carry
// forward from the current window.
type SendingWindowPatch struct {
	Start    *string `json:"start,omitempty"`
	End      *string `json:"end,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

// SettingsPatch is a partial settings update. Nil fields are left alone.
type SettingsPatch struct {
	BusinessDaysOnly *bool                   `json:"businessDaysOnly,omitempty"`
	ThreadEmails     *bool                   `json:"threadEmails,omitempty"`
	SendingWindow    *SendingWindowPatch     `json:"sendingWindow,omitempty"`
	UnsubscribeLink  *string                 `json:"unsubscribeLink,omitempty"`
	ExitCriteria     *[]models.ExitCriterion `json:"exitCriteria,omitempty"`
}

// MergeSettings applies patch to current. Top-level fields replace their
// counterparts while the sending window merges field by field. Malformed
// values are dropped.
func MergeSettings(current models.Settings, patch SettingsPatch) models.Settings {
	out := current.Clone()

	if patch.BusinessDaysOnly != nil {
		out.BusinessDaysOnly = *patch.BusinessDaysOnly
	}
	if patch.ThreadEmails != nil {
		out.ThreadEmails = *patch.ThreadEmails
	}
	if patch.SendingWindow != nil {
		out.SendingWindow = mergeWindow(out.SendingWindow, *patch.SendingWindow)
	}
	if patch.UnsubscribeLink != nil {
		link := *patch.UnsubscribeLink
		if link == "" || utils.ValidVar(link, "url") {
			out.UnsubscribeLink = link
		}
	}
	if patch.ExitCriteria != nil {
		out.ExitCriteria = models.CanonicalExitCriteria(*patch.ExitCriteria)
	}
	return out
}

// mergeWindow returns current unchanged when no patch field is valid, so a
// malformed patch never seeds the default window.
func mergeWindow(current *models.SendingWindow, patch SendingWindowPatch) *models.SendingWindow {
	startOK := patch.Start != nil && validClock(*patch.Start)
	endOK := patch.End != nil && validClock(*patch.End)
	zoneOK := patch.Timezone != nil && *patch.Timezone != "" && utils.ValidVar(*patch.Timezone, "timezone")
	if !startOK && !endOK && !zoneOK {
		return current
	}

	window := models.SendingWindow{
		Start:    models.DefaultWindowStart,
		End:      models.DefaultWindowEnd,
		Timezone: models.DefaultWindowTimezone,
	}
	if current != nil {
		window = *current
	}
	if startOK {
		window.Start = *patch.Start
	}
	if endOK {
		window.End = *patch.End
	}
	if zoneOK {
		window.Timezone = *patch.Timezone
	}
	return &window
}

func validClock(v string) bool {
	return len(v) == len("15:04") && utils.ValidVar(v, "datetime=15:04")
}

// ToggleExitCriterion adds c when absent and removes it when present.
// Unknown criteria are ignored.
func ToggleExitCriterion(current models.Settings, c models.ExitCriterion) models.Settings {
	out := current.Clone()
	if !c.Valid() {
		return out
	}

	set := make(map[models.ExitCriterion]bool, len(out.ExitCriteria))
	for _, existing := range out.ExitCriteria {
		set[existing] = true
	}
	set[c] = !set[c]

	var next []models.ExitCriterion
	for _, known := range models.ExitCriteria {
		if set[known] {
			next = append(next, known)
		}
	}
	if next == nil {
		next = []models.ExitCriterion{}
	}
	out.ExitCriteria = next
	return out
}

// WithSettings merges patch into the sequence settings.
func WithSettings(patch SettingsPatch) Updater {
	return func(s models.Sequence) models.Sequence {
		s.Settings = MergeSettings(s.Settings, patch)
		return s
	}
}

// WithExitCriterionToggled toggles c in the sequence settings.
func WithExitCriterionToggled(c models.ExitCriterion) Updater {
	return func(s models.Sequence) models.Sequence {
		s.Settings = ToggleExitCriterion(s.Settings, c)
		return s
	}
}
