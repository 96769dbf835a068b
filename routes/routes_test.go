package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"prospectflow/editor"
	"prospectflow/events"
	"prospectflow/middleware"
	"prospectflow/models"
	"prospectflow/store"
	"prospectflow/store/storetest"
	"prospectflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []utils.TestEmail
}

func (m *recordingMailer) SendTest(email utils.TestEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return nil
}

type recordingQueue struct {
	ids []string
}

func (q *recordingQueue) Enqueue(id string) error {
	q.ids = append(q.ids, id)
	return nil
}

type testServer struct {
	app    *fiber.App
	db     *gorm.DB
	mailer *recordingMailer
	events *events.Recorder
	queue  *recordingQueue
}

func newTestServer(t *testing.T, limit int) *testServer {
	t.Helper()
	srv := &testServer{
		db:     storetest.NewDB(t),
		mailer: &recordingMailer{},
		events: &events.Recorder{},
		queue:  &recordingQueue{},
	}
	srv.app = fiber.New()
	SetupRoutes(srv.app, Dependencies{
		DB:        srv.db,
		Exa:       utils.NewExaClient(utils.ExaOptions{Logger: logrus.NewEntry(logrus.New())}),
		Mailer:    srv.mailer,
		Events:    srv.events,
		Registry:  editor.NewRegistry(),
		Hub:       utils.NewProgressHub(),
		Runs:      srv.queue,
		Generator: editor.MockGenerator{},
		RateLimit: middleware.RateLimitConfig{Name: "exa", Max: limit, Expiration: time.Minute},
	})
	return srv
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func call[T any](t *testing.T, srv *testServer, method, path string, body any) (int, envelope[T]) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope[T]
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHealthAndNotFound(t *testing.T) {
	srv := newTestServer(t, 10)

	status, _ := call[any](t, srv, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body := call[any](t, srv, "GET", "/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Not Found", body.Error)
}

func TestSequencesCreateAndList(t *testing.T) {
	srv := newTestServer(t, 10)

	status, created := call[map[string]any](t, srv, "POST", "/api/v1/sequences", nil)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "New Sequence", created.Data["name"])
	assert.Equal(t, models.SequenceStatusDraft, created.Data["status"])
	assert.Equal(t, true, created.Data["isDraft"])

	status, list := call[[]map[string]any](t, srv, "GET", "/api/v1/sequences", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, list.Data, 1)
	assert.Equal(t, created.Data["id"], list.Data[0]["id"])
}

func TestEditorPublishAndEnroll(t *testing.T) {
	srv := newTestServer(t, 10)
	ctx := context.Background()

	status, opened := call[editor.View](t, srv, "POST", "/api/v1/editor/sessions", nil)
	require.Equal(t, fiber.StatusCreated, status)
	view := opened.Data
	assert.True(t, view.IsNew)
	assert.Equal(t, editor.StateDirty, view.State)
	base := "/api/v1/editor/sessions/" + view.SessionID

	status, _ = call[editor.View](t, srv, "PUT", base+"/tab", map[string]string{"tab": "Recipients"})
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = call[editor.View](t, srv, "POST", base+"/discard", nil)
	assert.Equal(t, fiber.StatusConflict, status)

	_, added := call[editor.View](t, srv, "POST", base+"/steps", map[string]string{"type": "automated-email"})
	call[editor.View](t, srv, "POST", base+"/steps", map[string]string{"type": "wait"})
	_, added = call[editor.View](t, srv, "POST", base+"/steps", map[string]string{"type": "automated-email"})
	require.Len(t, added.Data.Sequence.Steps, 3)
	first := added.Data.Sequence.Steps[0].ID

	_, patched := call[editor.View](t, srv, "PATCH", base+"/steps/"+first, map[string]string{
		"subject": "Hi {{person.name.first}}",
		"content": "Hello from {{company.name}}",
	})
	assert.Equal(t, models.EmailStep{Subject: "Hi {{person.name.first}}", Content: "Hello from {{company.name}}"},
		patched.Data.Sequence.Steps[0].Payload)

	status, published := call[editor.View](t, srv, "POST", base+"/publish", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, editor.StateClean, published.Data.State)
	assert.False(t, published.Data.IsNew)

	sent := srv.events.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, events.SequencePublished, sent[0].Key)

	records := store.NewGormRecordStore(srv.db)
	stepRecs, err := store.NewSequenceRepository(records).Steps(ctx, published.Data.Sequence.ID)
	require.NoError(t, err)
	assert.Len(t, stepRecs, 2)

	jane, err := records.CreateOne(ctx, models.ObjectProspects, map[string]any{
		"entityType": models.ScopePerson,
		"personName": "Jane Doe",
		"email":      "jane@acme.com",
	})
	require.NoError(t, err)

	status, modal := call[editor.View](t, srv, "PUT", base+"/modal", map[string]string{"modal": "enroll"})
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, modal.Data.Enrollment.Filtered, 1)

	status, _ = call[any](t, srv, "POST", base+"/enrollment/confirm", nil)
	assert.Equal(t, fiber.StatusConflict, status)

	_, toggled := call[editor.View](t, srv, "POST", base+"/enrollment/recipients/"+jane.ID+"/toggle", nil)
	assert.Equal(t, []string{jane.ID}, toggled.Data.Enrollment.Selected)

	status, confirmed := call[struct {
		Enrolled int         `json:"enrolled"`
		Session  editor.View `json:"session"`
	}](t, srv, "POST", base+"/enrollment/confirm", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, confirmed.Data.Enrolled)
	assert.Equal(t, editor.ModalNone, confirmed.Data.Session.Modal)
	assert.Empty(t, confirmed.Data.Session.Enrollment.Selected)

	sent = srv.events.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, events.SequenceEnrollmentConfirmed, sent[1].Key)
}

func TestEditorPreviewAndTestSend(t *testing.T) {
	srv := newTestServer(t, 10)

	_, opened := call[editor.View](t, srv, "POST", "/api/v1/editor/sessions", nil)
	base := "/api/v1/editor/sessions/" + opened.Data.SessionID
	_, added := call[editor.View](t, srv, "POST", base+"/steps", map[string]string{"type": "email"})
	stepID := added.Data.Sequence.Steps[0].ID

	call[editor.View](t, srv, "PATCH", base+"/steps/"+stepID, map[string]string{"subject": "Hi {{person.name.first}}"})
	_, inserted := call[struct {
		Caret int `json:"caret"`
	}](t, srv, "POST", base+"/steps/"+stepID+"/variables", map[string]any{
		"start": 0, "end": 0, "variable": "{{company.name}}",
	})
	assert.Equal(t, len("{{company.name}}"), inserted.Data.Caret)

	status, preview := call[editor.Preview](t, srv, "GET", base+"/steps/"+stepID+"/preview", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, editor.Preview{Subject: "Hi John", Content: "Acme Corp"}, preview.Data)

	status, _ = call[any](t, srv, "POST", base+"/steps/"+stepID+"/test-send", map[string]string{"to": "bad"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call[any](t, srv, "POST", base+"/steps/"+stepID+"/test-send", map[string]string{"to": "me@example.com"})
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, srv.mailer.sent, 1)
	assert.Equal(t, "Hi John", srv.mailer.sent[0].Subject)

	status, _ = call[any](t, srv, "GET", base+"/steps/missing/preview", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestEditorSettingsAndAIPreview(t *testing.T) {
	srv := newTestServer(t, 10)

	_, opened := call[editor.View](t, srv, "POST", "/api/v1/editor/sessions", nil)
	base := "/api/v1/editor/sessions/" + opened.Data.SessionID

	_, v := call[editor.View](t, srv, "PATCH", base+"/settings", map[string]any{
		"sendingWindow": map[string]string{"start": "08:00"},
	})
	assert.Equal(t, &models.SendingWindow{Start: "08:00", End: "17:00", Timezone: "America/New_York"},
		v.Data.Sequence.Settings.SendingWindow)

	_, v = call[editor.View](t, srv, "POST", base+"/settings/exit-criteria/Opened/toggle", nil)
	assert.Equal(t, []models.ExitCriterion{models.ExitReplied, models.ExitOpened, models.ExitBounced, models.ExitUnsubscribed},
		v.Data.Sequence.Settings.ExitCriteria)

	_, v = call[editor.View](t, srv, "PATCH", base, map[string]string{"name": "Q3 outreach"})
	assert.Equal(t, "Q3 outreach", v.Data.Sequence.Name)
	_, v = call[editor.View](t, srv, "POST", base+"/toggle-enabled", nil)
	assert.True(t, v.Data.Sequence.IsEnabled)

	status, _ := call[any](t, srv, "POST", base+"/ai-preview", map[string]string{"prompt": " "})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, gen := call[struct {
		Preview string `json:"preview"`
	}](t, srv, "POST", base+"/ai-preview", map[string]string{"prompt": "Follow up politely"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, gen.Data.Preview, "Follow up politely")

	status, _ = call[any](t, srv, "DELETE", base, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = call[any](t, srv, "GET", base, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestWebsetCreateAndRun(t *testing.T) {
	srv := newTestServer(t, 10)

	status, _ := call[any](t, srv, "POST", "/api/v1/websets", map[string]any{"scope": "planet"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, created := call[map[string]any](t, srv, "POST", "/api/v1/websets", map[string]any{
		"name": "Fintech", "query": "fintech CTOs", "scope": "person", "depth": 5,
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "person", created.Data["scope"])

	status, _ = call[any](t, srv, "POST", "/api/v1/websets/"+created.Data["id"].(string)+"/run", nil)
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, []string{created.Data["id"].(string)}, srv.queue.ids)

	status, _ = call[any](t, srv, "POST", "/api/v1/websets/missing/run", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, prospects := call[[]map[string]any](t, srv, "GET", "/api/v1/websets/"+created.Data["id"].(string)+"/prospects", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, prospects.Data)
}

func TestExaProxyNotConfiguredAndRateLimited(t *testing.T) {
	srv := newTestServer(t, 2)

	status, _ := call[any](t, srv, "GET", "/integration/exa/websets", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)

	status, body := call[struct {
		Created int `json:"created"`
	}](t, srv, "POST", "/integration/exa/setup/initialize", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, body.Data.Created)

	status, _ = call[any](t, srv, "GET", "/integration/exa/websets", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
}
