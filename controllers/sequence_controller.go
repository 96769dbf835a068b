package controller

import (
	"prospectflow/store"
	"prospectflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type SequenceController struct {
	Sequences *store.SequenceRepository
	Logger    *logrus.Entry
}

func NewSequenceController(sequences *store.SequenceRepository, logger *logrus.Entry) *SequenceController {
	return &SequenceController{
		Sequences: sequences,
		Logger:    logger,
	}
}

// ListSequences returns every sequence, newest first.
func (sc *SequenceController) ListSequences(c *fiber.Ctx) error {
	recs, err := sc.Sequences.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(recs))
}

// CreateSequence stores a blank draft sequence.
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	rec, err := sc.Sequences.Create(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	sc.Logger.WithField("sequence_id", rec.ID).Info("Sequence created")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(rec))
}
