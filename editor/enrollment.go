package editor

import (
	"errors"
	"strings"

	"prospectflow/models"
)

var ErrEmptySelection = errors.New("select at least one recipient")

// Selection is the recipient multi-select of the enroll dialog. It never
// mutates the candidates.
type Selection struct {
	candidates []models.Recipient
	selected   map[string]struct{}
	query      string
}

func NewSelection(candidates []models.Recipient) *Selection {
	s := &Selection{selected: make(map[string]struct{})}
	s.SetCandidates(candidates)
	return s
}

// SetCandidates replaces the candidate list and drops selected ids that
// are no longer candidates.
func (s *Selection) SetCandidates(candidates []models.Recipient) {
	s.candidates = append([]models.Recipient(nil), candidates...)
	for id := range s.selected {
		if !s.isCandidate(id) {
			delete(s.selected, id)
		}
	}
}

func (s *Selection) Candidates() []models.Recipient {
	return append([]models.Recipient(nil), s.candidates...)
}

func (s *Selection) Query() string { return s.query }

func (s *Selection) SetQuery(q string) { s.query = q }

// Filtered returns the candidates whose name, email or company contains
// the query, ignoring case. An empty query matches everyone.
func (s *Selection) Filtered() []models.Recipient {
	if s.query == "" {
		return s.Candidates()
	}
	q := strings.ToLower(s.query)
	var out []models.Recipient
	for _, r := range s.candidates {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Email), q) ||
			strings.Contains(strings.ToLower(r.Company), q) {
			out = append(out, r)
		}
	}
	return out
}

// Toggle flips the membership of id and reports whether it is now
// selected. Ids that are not candidates are ignored.
func (s *Selection) Toggle(id string) bool {
	if !s.isCandidate(id) {
		return false
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

func (s *Selection) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// SelectAll replaces the selection with the filtered candidates.
func (s *Selection) SelectAll() {
	s.selected = make(map[string]struct{})
	for _, r := range s.Filtered() {
		s.selected[r.ID] = struct{}{}
	}
}

func (s *Selection) ClearAll() {
	s.selected = make(map[string]struct{})
}

func (s *Selection) Count() int { return len(s.selected) }

func (s *Selection) CanConfirm() bool { return len(s.selected) > 0 }

// Selected returns the selected ids in candidate order.
func (s *Selection) Selected() []string {
	ids := make([]string, 0, len(s.selected))
	for _, r := range s.candidates {
		if _, ok := s.selected[r.ID]; ok {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Confirm returns the final id list for enrollment.
func (s *Selection) Confirm() ([]string, error) {
	if !s.CanConfirm() {
		return nil, ErrEmptySelection
	}
	return s.Selected(), nil
}

func (s *Selection) isCandidate(id string) bool {
	for _, r := range s.candidates {
		if r.ID == id {
			return true
		}
	}
	return false
}
