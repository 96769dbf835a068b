package utils

import (
	"sync"

	"prospectflow/models"
)

// ProgressUpdate is one status report for a webset run.
type ProgressUpdate struct {
	WebsetID   string  `json:"websetId"`
	Status     string  `json:"status"`
	Found      int     `json:"found"`
	Analyzed   int     `json:"analyzed"`
	Completion float64 `json:"completion"`
	Imported   int     `json:"imported,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Done reports whether no further updates follow.
func (u ProgressUpdate) Done() bool {
	return u.Status == models.WebsetStatusCompleted || u.Status == models.WebsetStatusFailed
}

// ProgressHub fans webset progress out to websocket subscribers. Slow
// subscribers miss updates rather than block the publisher.
type ProgressHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan ProgressUpdate
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[int]chan ProgressUpdate)}
}

// Subscribe returns a channel of updates for websetID and a func that
// unsubscribes and closes it.
func (h *ProgressHub) Subscribe(websetID string) (<-chan ProgressUpdate, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan ProgressUpdate, 8)
	if h.subs[websetID] == nil {
		h.subs[websetID] = make(map[int]chan ProgressUpdate)
	}
	h.subs[websetID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[websetID], id)
			if len(h.subs[websetID]) == 0 {
				delete(h.subs, websetID)
			}
			close(ch)
		})
	}
}

func (h *ProgressHub) Publish(update ProgressUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[update.WebsetID] {
		select {
		case ch <- update:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions for websetID.
func (h *ProgressHub) Subscribers(websetID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[websetID])
}
