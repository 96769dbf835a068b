package controller

import (
	"strings"

	"prospectflow/models"
	"prospectflow/store"
	"prospectflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// RunQueue accepts webset runs.
type RunQueue interface {
	Enqueue(websetID string) error
}

type WebsetController struct {
	Websets *store.WebsetRepository
	Runs    RunQueue
	Hub     *utils.ProgressHub
	Logger  *logrus.Entry
}

func NewWebsetController(websets *store.WebsetRepository, runs RunQueue, hub *utils.ProgressHub, logger *logrus.Entry) *WebsetController {
	return &WebsetController{
		Websets: websets,
		Runs:    runs,
		Hub:     hub,
		Logger:  logger,
	}
}

func (wc *WebsetController) ListWebsets(c *fiber.Ctx) error {
	recs, err := wc.Websets.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(recs))
}

func (wc *WebsetController) CreateWebset(c *fiber.Ctx) error {
	var input struct {
		Name  *string `json:"name" validate:"omitempty,max=200"`
		Query *string `json:"query"`
		Scope *string `json:"scope" validate:"omitempty,oneof=company person article"`
		Depth *int    `json:"depth" validate:"omitempty,min=1,max=1000"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	fields := map[string]any{}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Query != nil {
		fields["query"] = *input.Query
	}
	if input.Scope != nil && *input.Scope != "" {
		fields["scope"] = *input.Scope
	}
	if input.Depth != nil {
		fields["depth"] = *input.Depth
	}

	rec, err := wc.Websets.Create(c.UserContext(), fields)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(rec))
}

// RunWebset queues a search for the webset.
func (wc *WebsetController) RunWebset(c *fiber.Ctx) error {
	webset, err := wc.Websets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if webset.Status == models.WebsetStatusRunning {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Webset is already running", nil)
	}
	if err := wc.Runs.Enqueue(webset.ID); err != nil {
		return respondError(c, err)
	}

	wc.Logger.WithField("webset_id", webset.ID).Info("Webset run queued")
	return c.Status(fiber.StatusAccepted).JSON(utils.SuccessResponse(fiber.Map{
		"websetId": webset.ID,
		"status":   "queued",
	}))
}

func (wc *WebsetController) ListProspects(c *fiber.Ctx) error {
	if _, err := wc.Websets.Get(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	recs, err := wc.Websets.Prospects(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(recs))
}

// HandleProgressWS streams run progress of the webset named by the :id
// param until the run finishes or the client goes away.
func (wc *WebsetController) HandleProgressWS(c *websocket.Conn) {
	defer c.Close()

	websetID := c.Params("id")
	updates, unsubscribe := wc.Hub.Subscribe(websetID)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := c.WriteJSON(update); err != nil {
				wc.Logger.WithError(err).WithField("webset_id", websetID).Debug("Error writing progress")
				return
			}
			if update.Done() {
				return
			}
		}
	}
}
