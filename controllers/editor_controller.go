package controller

import (
	"context"
	"time"

	"prospectflow/editor"
	"prospectflow/events"
	"prospectflow/models"
	"prospectflow/store"
	"prospectflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// RecipientSource lists the people that can be enrolled.
type RecipientSource interface {
	Recipients(ctx context.Context) ([]models.Recipient, error)
}

// TestSender delivers test emails.
type TestSender interface {
	SendTest(email utils.TestEmail) error
}

type EditorController struct {
	Registry    *editor.Registry
	Sequences   *store.SequenceRepository
	Enrollments editor.Enroller
	Directory   RecipientSource
	Generator   editor.Generator
	Mailer      TestSender
	Events      events.Publisher
	Logger      *logrus.Entry

	// GenerateTimeout bounds one AI preview generation.
	GenerateTimeout time.Duration
}

func NewEditorController(registry *editor.Registry, sequences *store.SequenceRepository, enrollments editor.Enroller,
	directory RecipientSource, generator editor.Generator, mailer TestSender, publisher events.Publisher,
	logger *logrus.Entry) *EditorController {
	return &EditorController{
		Registry:        registry,
		Sequences:       sequences,
		Enrollments:     enrollments,
		Directory:       directory,
		Generator:       generator,
		Mailer:          mailer,
		Events:          publisher,
		Logger:          logger,
		GenerateTimeout: 30 * time.Second,
	}
}

func (ec *EditorController) session(c *fiber.Ctx) (*editor.Session, error) {
	return ec.Registry.Get(c.Params("id"))
}

func viewResponse(c *fiber.Ctx, view editor.View, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(view))
}

func (ec *EditorController) ListVariables(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(editor.Variables))
}

// OpenSession starts an editor over a stored sequence. Without a
// sequenceId a blank draft sequence is created first.
func (ec *EditorController) OpenSession(c *fiber.Ctx) error {
	var input struct {
		SequenceID string `json:"sequenceId"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}

	ctx := c.UserContext()
	sequenceID := input.SequenceID
	if sequenceID == "" {
		rec, err := ec.Sequences.Create(ctx)
		if err != nil {
			return respondError(c, err)
		}
		sequenceID = rec.ID
	}

	seq, published, err := ec.Sequences.Load(ctx, sequenceID)
	if err != nil {
		return respondError(c, err)
	}

	var draft *editor.Draft
	if published {
		draft = editor.NewDraft(&seq)
	} else {
		draft = editor.NewDraft(nil)
		draft.SetDraft(seq)
	}
	s := ec.Registry.Open(draft)

	ec.Logger.WithFields(logrus.Fields{
		"session_id":  s.ID(),
		"sequence_id": sequenceID,
		"published":   published,
	}).Info("Editor session opened")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(s.View()))
}

func (ec *EditorController) GetSession(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(s.View()))
}

func (ec *EditorController) CloseSession(c *fiber.Ctx) error {
	if !ec.Registry.Close(c.Params("id")) {
		return respondError(c, editor.ErrSessionNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ec *EditorController) update(c *fiber.Ctx, u editor.Updater) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.Update(u)
	return viewResponse(c, view, err)
}

func (ec *EditorController) AddStep(c *fiber.Ctx) error {
	var input struct {
		Type models.StepType `json:"type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	return ec.update(c, editor.WithStepAdded(input.Type))
}

func (ec *EditorController) UpdateStep(c *fiber.Ctx) error {
	var patch editor.StepPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	return ec.update(c, editor.WithStepUpdated(c.Params("stepId"), patch))
}

func (ec *EditorController) DeleteStep(c *fiber.Ctx) error {
	return ec.update(c, editor.WithStepDeleted(c.Params("stepId")))
}

func (ec *EditorController) SetAIPrompt(c *fiber.Ctx) error {
	var input struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	return ec.update(c, editor.WithAIPrompt(c.Params("stepId"), input.Prompt))
}

func (ec *EditorController) ClearAIPrompt(c *fiber.Ctx) error {
	return ec.update(c, editor.WithAIPromptCleared(c.Params("stepId")))
}

func (ec *EditorController) StartManual(c *fiber.Ctx) error {
	return ec.update(c, editor.WithManualStart(c.Params("stepId")))
}

func (ec *EditorController) InsertVariable(c *fiber.Ctx) error {
	var input struct {
		Start    int    `json:"start"`
		End      int    `json:"end"`
		Variable string `json:"variable"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if !editor.IsKnownVariable(input.Variable) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown variable", nil)
	}

	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	view, caret, err := s.InsertVariable(c.Params("stepId"), input.Start, input.End, input.Variable)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"session": view,
		"caret":   caret,
	}))
}

// emailStep finds an email step of the session's current draft.
func emailStep(s *editor.Session, stepID string) (models.EmailStep, error) {
	view := s.View()
	if view.Sequence == nil {
		return models.EmailStep{}, editor.ErrNoDraft
	}
	step, ok := editor.FindStep(view.Sequence.Steps, stepID)
	if !ok {
		return models.EmailStep{}, editor.ErrStepNotFound
	}
	email, ok := step.Payload.(models.EmailStep)
	if !ok {
		return models.EmailStep{}, editor.ErrStepNotFound
	}
	return email, nil
}

// PreviewStep renders an email step with sample data.
func (ec *EditorController) PreviewStep(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	email, err := emailStep(s, c.Params("stepId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(editor.RenderPreview(email.Subject, email.Content)))
}

// TestSendStep mails the rendered preview of a step to one address.
func (ec *EditorController) TestSendStep(c *fiber.Ctx) error {
	var input struct {
		To string `json:"to" validate:"required,email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	email, err := emailStep(s, c.Params("stepId"))
	if err != nil {
		return respondError(c, err)
	}
	if editor.ModeOf(email.Content) == editor.ContentAIPrompt {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "AI generated steps cannot be test sent", nil)
	}

	preview := editor.RenderPreview(email.Subject, email.Content)
	unsubscribe := ""
	if seq := s.View().Sequence; seq != nil {
		unsubscribe = seq.Settings.UnsubscribeLink
	}
	if err := ec.Mailer.SendTest(utils.TestEmail{
		To:              input.To,
		Subject:         preview.Subject,
		Body:            preview.Content,
		UnsubscribeLink: unsubscribe,
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"sent": true, "to": input.To}))
}

func (ec *EditorController) UpdateSettings(c *fiber.Ctx) error {
	var patch editor.SettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	return ec.update(c, editor.WithSettings(patch))
}

func (ec *EditorController) ToggleExitCriterion(c *fiber.Ctx) error {
	return ec.update(c, editor.WithExitCriterionToggled(models.ExitCriterion(c.Params("criterion"))))
}

// UpdateDetails renames the sequence or changes its description.
func (ec *EditorController) UpdateDetails(c *fiber.Ctx) error {
	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	return ec.update(c, func(seq models.Sequence) models.Sequence {
		if input.Name != nil {
			seq = editor.WithName(*input.Name)(seq)
		}
		if input.Description != nil {
			seq = editor.WithDescription(*input.Description)(seq)
		}
		return seq
	})
}

func (ec *EditorController) ToggleEnabled(c *fiber.Ctx) error {
	return ec.update(c, editor.WithEnabledToggled())
}

func (ec *EditorController) Publish(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.Publish(c.UserContext(), ec.Sequences)
	if err != nil {
		return respondError(c, err)
	}

	if seq := view.Sequence; seq != nil {
		_ = events.Emit(c.UserContext(), ec.Events, events.SequencePublished, s.ID(), events.SequencePublishedData{
			SequenceID: seq.ID,
			Name:       seq.Name,
			StepCount:  len(seq.Steps),
			IsEnabled:  seq.IsEnabled,
		})
		utils.LogEvent("sequence_published", map[string]interface{}{
			"sequence_id": seq.ID,
			"steps":       len(seq.Steps),
		})
	}
	return c.JSON(utils.SuccessResponse(view))
}

func (ec *EditorController) Discard(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.Discard()
	return viewResponse(c, view, err)
}

func (ec *EditorController) SetTab(c *fiber.Ctx) error {
	var input struct {
		Tab editor.Tab `json:"tab"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.SetTab(input.Tab)
	return viewResponse(c, view, err)
}

// OpenModal opens a dialog. Opening the enroll dialog reloads the
// recipient candidates.
func (ec *EditorController) OpenModal(c *fiber.Ctx) error {
	var input struct {
		Modal editor.Modal `json:"modal"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.OpenModal(input.Modal)
	if err != nil {
		return respondError(c, err)
	}
	if input.Modal == editor.ModalEnroll {
		recipients, err := ec.Directory.Recipients(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		view = s.SetCandidates(recipients)
	}
	return c.JSON(utils.SuccessResponse(view))
}

func (ec *EditorController) CloseModal(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(s.CloseModal()))
}

func (ec *EditorController) SetEnrollmentQuery(c *fiber.Ctx) error {
	var input struct {
		Query string `json:"query"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(s.SetQuery(input.Query)))
}

func (ec *EditorController) ToggleRecipient(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(s.ToggleRecipient(c.Params("recipientId"))))
}

func (ec *EditorController) SelectAllRecipients(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(s.SelectAll()))
}

func (ec *EditorController) ClearRecipients(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(s.ClearAll()))
}

func (ec *EditorController) ConfirmEnrollment(c *fiber.Ctx) error {
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}
	ids, count, err := s.ConfirmEnrollment(c.UserContext(), ec.Enrollments)
	if err != nil {
		return respondError(c, err)
	}

	sequenceID := s.SequenceID()
	_ = events.Emit(c.UserContext(), ec.Events, events.SequenceEnrollmentConfirmed, s.ID(), events.EnrollmentConfirmedData{
		SequenceID:   sequenceID,
		RecipientIDs: ids,
		Enrolled:     count,
	})
	utils.LogEvent("enrollment_confirmed", map[string]interface{}{
		"sequence_id": sequenceID,
		"selected":    len(ids),
		"enrolled":    count,
	})
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"enrolled":     count,
		"recipientIds": ids,
		"session":      s.View(),
	}))
}

// GenerateAIPreview runs the generator for the AI assistant dialog.
func (ec *EditorController) GenerateAIPreview(c *fiber.Ctx) error {
	var input struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	s, err := ec.session(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), ec.GenerateTimeout)
	defer cancel()

	preview, err := s.GeneratePreview(ctx, ec.Generator, input.Prompt)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"preview": preview,
		"session": s.View(),
	}))
}
