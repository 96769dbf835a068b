package controller

import (
	"time"

	"prospectflow/models"
	"prospectflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SetupController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewSetupController(db *gorm.DB, logger *logrus.Entry) *SetupController {
	return &SetupController{DB: db, Logger: logger}
}

// Initialize ensures the custom objects used by websets and sequences.
// Objects that already exist are left untouched.
func (sc *SetupController) Initialize(c *fiber.Ctx) error {
	defs, err := models.DefaultObjectDefinitions()
	if err != nil {
		return respondError(c, err)
	}
	results, err := models.EnsureObjects(c.UserContext(), sc.DB, defs)
	if err != nil {
		return respondError(c, err)
	}

	created := 0
	for _, r := range results {
		if r.Created {
			created++
		}
	}
	sc.Logger.WithFields(logrus.Fields{"objects": len(results), "created": created}).Info("Custom objects ensured")
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"objects": results,
		"created": created,
	}))
}

// Health reports liveness and whether the database answers.
func (sc *SetupController) Health(c *fiber.Ctx) error {
	status := "ok"
	database := "up"
	if sqlDB, err := sc.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		status = "degraded"
		database = "down"
	}
	return c.JSON(fiber.Map{
		"status":   status,
		"database": database,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
