package controller

import (
	"strings"

	"prospectflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ExaController proxies the Exa websets API.
type ExaController struct {
	Exa    utils.ExaAPI
	Logger *logrus.Entry
}

func NewExaController(exa utils.ExaAPI, logger *logrus.Entry) *ExaController {
	return &ExaController{Exa: exa, Logger: logger}
}

func (xc *ExaController) CreateWebset(c *fiber.Ctx) error {
	var input utils.CreateWebsetInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	webset, err := xc.Exa.CreateWebset(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(webset))
}

func (xc *ExaController) ListWebsets(c *fiber.Ctx) error {
	page, err := xc.Exa.ListWebsets(c.UserContext(), c.Query("cursor"), utils.QueryInt(c, "limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(page))
}

func (xc *ExaController) GetWebset(c *fiber.Ctx) error {
	var expand []string
	if raw := c.Query("expand"); raw != "" {
		expand = strings.Split(raw, ",")
	}
	webset, err := xc.Exa.GetWebset(c.UserContext(), c.Params("id"), expand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(webset))
}

// bindSearch parses and validates a search body.
func bindSearch(c *fiber.Ctx, input *utils.CreateSearchInput) error {
	if err := c.BodyParser(input); err != nil {
		return err
	}
	return utils.ValidateStruct(*input)
}

func (xc *ExaController) CreateSearch(c *fiber.Ctx) error {
	var input utils.CreateSearchInput
	if err := bindSearch(c, &input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid search", err)
	}
	search, err := xc.Exa.CreateSearch(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(search))
}

func (xc *ExaController) GetSearch(c *fiber.Ctx) error {
	search, err := xc.Exa.GetSearch(c.UserContext(), c.Params("id"), c.Params("searchId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(search))
}

func (xc *ExaController) ListItems(c *fiber.Ctx) error {
	page, err := xc.Exa.ListItems(c.UserContext(), c.Params("id"), c.Query("cursor"), utils.QueryInt(c, "limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(page))
}

func (xc *ExaController) CreateEnrichment(c *fiber.Ctx) error {
	var input utils.CreateEnrichmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	raw, err := xc.Exa.CreateEnrichment(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(raw))
}

// SearchAndPoll runs a search to completion and returns every item.
func (xc *ExaController) SearchAndPoll(c *fiber.Ctx) error {
	var input utils.CreateSearchInput
	if err := bindSearch(c, &input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid search", err)
	}

	websetID := c.Params("id")
	items, err := xc.Exa.RunSearchAndPoll(c.UserContext(), websetID, input, func(p utils.SearchProgress) {
		xc.Logger.WithFields(logrus.Fields{
			"webset_id":  websetID,
			"found":      p.Found,
			"completion": p.Completion,
		}).Debug("Search progress")
	})
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []utils.ExaItem{}
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"items": items,
		"count": len(items),
	}))
}
