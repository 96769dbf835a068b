package events

import (
	"time"

	"github.com/google/uuid"
)

const Producer = "prospectflow"

// Event types. Routing keys equal the type.
const (
	SequencePublished           = "sequence.published.v1"
	SequenceEnrollmentConfirmed = "sequence.enrollment.confirmed.v1"
	WebsetSearchCompleted       = "webset.search.completed.v1"
)

type Meta struct {
	// Request correlation id
	CorrelationID *string `json:"correlation_id,omitempty"`
	// Unique event id
	ID string `json:"id"`
	// Emitting service
	Producer *string `json:"producer,omitempty"`
	// When the event was emitted
	Time time.Time `json:"time"`
	// Event name and version, e.g. sequence.published.v1
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope wraps data in a freshly stamped envelope. An empty
// correlationID is left unset.
func NewEnvelope(eventType, correlationID string, data any) Envelope {
	producer := Producer
	meta := Meta{
		ID:       uuid.NewString(),
		Producer: &producer,
		Time:     time.Now().UTC(),
		Type:     eventType,
	}
	if correlationID != "" {
		meta.CorrelationID = &correlationID
	}
	return Envelope{Meta: meta, Data: data}
}

type SequencePublishedData struct {
	SequenceID string `json:"sequenceId"`
	Name       string `json:"name"`
	StepCount  int    `json:"stepCount"`
	IsEnabled  bool   `json:"isEnabled"`
}

type EnrollmentConfirmedData struct {
	SequenceID   string   `json:"sequenceId"`
	RecipientIDs []string `json:"recipientIds"`
	Enrolled     int      `json:"enrolled"`
}

type WebsetSearchCompletedData struct {
	WebsetID         string `json:"websetId"`
	ExternalWebsetID string `json:"externalWebsetId"`
	Query            string `json:"query"`
	ResultsCount     int    `json:"resultsCount"`
	Imported         int    `json:"imported"`
}
