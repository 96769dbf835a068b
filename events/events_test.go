package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeStampsMeta(t *testing.T) {
	env := NewEnvelope(SequencePublished, "req-1", SequencePublishedData{SequenceID: "seq_1", StepCount: 2})

	assert.NotEmpty(t, env.Meta.ID)
	assert.Equal(t, SequencePublished, env.Meta.Type)
	require.NotNil(t, env.Meta.Producer)
	assert.Equal(t, Producer, *env.Meta.Producer)
	require.NotNil(t, env.Meta.CorrelationID)
	assert.Equal(t, "req-1", *env.Meta.CorrelationID)

	other := NewEnvelope(SequencePublished, "", nil)
	assert.Nil(t, other.Meta.CorrelationID)
	assert.NotEqual(t, env.Meta.ID, other.Meta.ID)
}

func TestNewPublishing(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env := NewEnvelope(SequenceEnrollmentConfirmed, "", EnrollmentConfirmedData{SequenceID: "seq_1", RecipientIDs: []string{"p1"}, Enrolled: 1})

	pub, err := newPublishing(env, now)
	require.NoError(t, err)
	assert.Equal(t, uint8(amqp.Persistent), pub.DeliveryMode)
	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, env.Meta.ID, pub.MessageId)
	assert.Equal(t, env.Meta.ID, pub.CorrelationId)
	assert.Equal(t, SequenceEnrollmentConfirmed, pub.Type)
	assert.Equal(t, now, pub.Timestamp)

	var decoded struct {
		Meta Meta                    `json:"meta"`
		Data EnrollmentConfirmedData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pub.Body, &decoded))
	assert.Equal(t, []string{"p1"}, decoded.Data.RecipientIDs)
	assert.Equal(t, SequenceEnrollmentConfirmed, decoded.Meta.Type)
}

func TestEmitThroughRecorderAndFallback(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}

	require.NoError(t, Emit(ctx, rec, WebsetSearchCompleted, "", WebsetSearchCompletedData{WebsetID: "w1", Imported: 3}))
	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, WebsetSearchCompleted, sent[0].Key)
	assert.Equal(t, 3, sent[0].Envelope.Data.(WebsetSearchCompletedData).Imported)

	fallback := NewFallback(logrus.NewEntry(logrus.New()))
	assert.NoError(t, Emit(ctx, fallback, SequencePublished, "", nil))
	assert.NoError(t, fallback.Close())
}
