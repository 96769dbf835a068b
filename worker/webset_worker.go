package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"prospectflow/events"
	"prospectflow/models"
	"prospectflow/store"
	"prospectflow/utils"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull     = errors.New("webset run queue is full")
	ErrAlreadyQueued = errors.New("webset run already queued or running")
	ErrQueryRequired = errors.New("webset query is required")
)

const defaultQueueDepth = 16

// WebsetWorker runs webset searches from a queue and imports the results
// as prospect records.
type WebsetWorker struct {
	Websets *store.WebsetRepository
	Exa     utils.ExaAPI
	Hub     *utils.ProgressHub
	Events  events.Publisher
	Logger  *logrus.Entry

	jobs   chan string
	mu     sync.Mutex
	active map[string]bool
}

func NewWebsetWorker(websets *store.WebsetRepository, exa utils.ExaAPI, hub *utils.ProgressHub,
	publisher events.Publisher, queue int, logger *logrus.Entry) *WebsetWorker {
	if queue <= 0 {
		queue = defaultQueueDepth
	}
	return &WebsetWorker{
		Websets: websets,
		Exa:     exa,
		Hub:     hub,
		Events:  publisher,
		Logger:  logger,
		jobs:    make(chan string, queue),
		active:  make(map[string]bool),
	}
}

// Enqueue schedules a run of websetID without blocking.
func (w *WebsetWorker) Enqueue(websetID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active[websetID] {
		return ErrAlreadyQueued
	}
	select {
	case w.jobs <- websetID:
		w.active[websetID] = true
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *WebsetWorker) Start(ctx context.Context) {
	w.Logger.Info("Webset worker started")
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("Webset worker shutting down...")
			return
		case id := <-w.jobs:
			if err := w.Run(ctx, id); err != nil {
				w.Logger.WithError(err).WithField("webset_id", id).Warn("Webset run failed")
			}
			w.mu.Lock()
			delete(w.active, id)
			w.mu.Unlock()
		}
	}
}

// Run executes one search for the webset and imports every item. The
// webset ends up completed, or failed with the error text.
func (w *WebsetWorker) Run(ctx context.Context, websetID string) error {
	webset, err := w.Websets.Get(ctx, websetID)
	if err != nil {
		return fmt.Errorf("load webset %s: %w", websetID, err)
	}
	if strings.TrimSpace(webset.Query) == "" {
		return w.fail(ctx, webset, ErrQueryRequired)
	}

	if err := w.Websets.Update(ctx, webset.ID, map[string]any{
		"status":    models.WebsetStatusRunning,
		"lastError": "",
	}); err != nil {
		return fmt.Errorf("mark webset running: %w", err)
	}
	w.Hub.Publish(utils.ProgressUpdate{WebsetID: webset.ID, Status: models.WebsetStatusRunning})

	externalID := webset.ExternalWebsetID
	if externalID == "" {
		created, err := w.Exa.CreateWebset(ctx, utils.CreateWebsetInput{Title: webset.Name})
		if err != nil {
			return w.fail(ctx, webset, err)
		}
		externalID = created.ID
		if err := w.Websets.Update(ctx, webset.ID, map[string]any{"externalWebsetId": externalID}); err != nil {
			return w.fail(ctx, webset, err)
		}
	}

	search := utils.CreateSearchInput{
		Query:  webset.Query,
		Count:  webset.Depth,
		Entity: &utils.SearchEntity{Type: webset.Scope},
	}
	items, err := w.Exa.RunSearchAndPoll(ctx, externalID, search, func(p utils.SearchProgress) {
		w.Hub.Publish(utils.ProgressUpdate{
			WebsetID:   webset.ID,
			Status:     models.WebsetStatusRunning,
			Found:      p.Found,
			Analyzed:   p.Analyzed,
			Completion: p.Completion,
		})
	})
	if err != nil {
		return w.fail(ctx, webset, err)
	}

	imported := 0
	for _, item := range items {
		created, err := w.Websets.SaveProspect(ctx, ProspectFields(webset.ID, item))
		if err != nil {
			return w.fail(ctx, webset, fmt.Errorf("import item %s: %w", item.ID, err))
		}
		if created {
			imported++
		}
	}

	if err := w.Websets.Update(ctx, webset.ID, map[string]any{
		"status":       models.WebsetStatusCompleted,
		"resultsCount": len(items),
		"lastError":    "",
	}); err != nil {
		return fmt.Errorf("mark webset completed: %w", err)
	}

	w.Hub.Publish(utils.ProgressUpdate{
		WebsetID:   webset.ID,
		Status:     models.WebsetStatusCompleted,
		Found:      len(items),
		Completion: 100,
		Imported:   imported,
	})
	_ = events.Emit(ctx, w.Events, events.WebsetSearchCompleted, "", events.WebsetSearchCompletedData{
		WebsetID:         webset.ID,
		ExternalWebsetID: externalID,
		Query:            webset.Query,
		ResultsCount:     len(items),
		Imported:         imported,
	})
	utils.LogEvent("webset_run_completed", map[string]interface{}{
		"webset_id": webset.ID,
		"results":   len(items),
		"imported":  imported,
	})
	return nil
}

// fail records cause on the webset. The update survives a cancelled ctx.
func (w *WebsetWorker) fail(ctx context.Context, webset models.Webset, cause error) error {
	ctx = context.WithoutCancel(ctx)
	if err := w.Websets.Update(ctx, webset.ID, map[string]any{
		"status":    models.WebsetStatusFailed,
		"lastError": cause.Error(),
	}); err != nil {
		w.Logger.WithError(err).WithField("webset_id", webset.ID).Error("Failed to record webset failure")
	}
	w.Hub.Publish(utils.ProgressUpdate{
		WebsetID: webset.ID,
		Status:   models.WebsetStatusFailed,
		Error:    cause.Error(),
	})
	utils.LogError("webset_run_failed", cause, map[string]interface{}{"webset_id": webset.ID})
	return cause
}

// ProspectFields maps a search item onto prospect record fields.
func ProspectFields(websetID string, item utils.ExaItem) map[string]any {
	props := item.Properties
	fields := map[string]any{
		"websetId":       websetID,
		"externalItemId": item.ID,
		"entityType":     props.Type,
		"url":            props.URL,
		"description":    props.Description,
		"qualityScore":   QualityScore(item.Evaluations),
		"importStatus":   models.ImportPending,
	}

	if c := props.Company; c != nil {
		setNonEmpty(fields, "companyName", c.Name)
		setNonEmpty(fields, "companyLocation", c.Location)
		setNonEmpty(fields, "companyIndustry", c.Industry)
		setNonEmpty(fields, "companyLogoUrl", c.LogoURL)
		if c.Employees > 0 {
			fields["companyEmployees"] = c.Employees
		}
	}
	if p := props.Person; p != nil {
		setNonEmpty(fields, "personName", p.Name)
		setNonEmpty(fields, "personLocation", p.Location)
		setNonEmpty(fields, "personPosition", p.Position)
		setNonEmpty(fields, "personPictureUrl", p.PictureURL)
		if p.Company != nil {
			setNonEmpty(fields, "personCompany", p.Company.Name)
		}
	}

	enrichment := map[string]any{}
	for _, e := range item.Enrichments {
		if len(e.Result) == 0 {
			continue
		}
		if e.Format == "email" {
			valid := []string{}
			for _, addr := range e.Result {
				if checkmail.ValidateFormat(addr) == nil {
					valid = append(valid, addr)
				}
			}
			if len(valid) == 0 {
				continue
			}
			if _, ok := fields["email"]; !ok {
				fields["email"] = valid[0]
			}
			enrichment[e.EnrichmentID] = valid
			continue
		}
		enrichment[e.EnrichmentID] = e.Result
	}
	if len(enrichment) > 0 {
		fields["enrichmentData"] = enrichment
	}
	return fields
}

// QualityScore is the rounded percentage of satisfied evaluations.
func QualityScore(evals []utils.ItemEvaluation) int {
	if len(evals) == 0 {
		return 0
	}
	satisfied := 0
	for _, e := range evals {
		if e.Satisfied == "yes" {
			satisfied++
		}
	}
	return int(math.Round(float64(satisfied) * 100 / float64(len(evals))))
}

func setNonEmpty(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
