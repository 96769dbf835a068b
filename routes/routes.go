package routes

import (
	controller "prospectflow/controllers"
	"prospectflow/editor"
	"prospectflow/events"
	"prospectflow/middleware"
	"prospectflow/store"
	"prospectflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

// Dependencies are the long lived services the routes are built on.
type Dependencies struct {
	DB        *gorm.DB
	Exa       utils.ExaAPI
	Mailer    controller.TestSender
	Events    events.Publisher
	Registry  *editor.Registry
	Hub       *utils.ProgressHub
	Runs      controller.RunQueue
	Generator editor.Generator
	RateLimit middleware.RateLimitConfig
}

func requestLogger() fiber.Handler {
	return logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	records := store.NewGormRecordStore(deps.DB)
	sequences := store.NewSequenceRepository(records)
	websets := store.NewWebsetRepository(records)

	sequenceController := controller.NewSequenceController(sequences, utils.ComponentLogger("sequences"))
	websetController := controller.NewWebsetController(websets, deps.Runs, deps.Hub, utils.ComponentLogger("websets"))
	editorController := controller.NewEditorController(
		deps.Registry,
		sequences,
		store.NewEnrollmentRepository(records),
		store.NewProspectDirectory(records),
		deps.Generator,
		deps.Mailer,
		deps.Events,
		utils.ComponentLogger("editor"),
	)
	exaController := controller.NewExaController(deps.Exa, utils.ComponentLogger("exa"))
	setupController := controller.NewSetupController(deps.DB, utils.ComponentLogger("setup"))

	app.Get("/health", setupController.Health)

	// WebSocket route for webset run progress
	app.Use("/api/v1/websets/:id/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/v1/websets/:id/progress", websocket.New(websetController.HandleProgressWS))

	api := app.Group("/api/v1", requestLogger())

	// Sequence routes
	sequence := api.Group("/sequences")
	sequence.Get("/", sequenceController.ListSequences)
	sequence.Post("/", sequenceController.CreateSequence)

	// Webset routes
	webset := api.Group("/websets")
	webset.Get("/", websetController.ListWebsets)
	webset.Post("/", websetController.CreateWebset)
	webset.Post("/:id/run", websetController.RunWebset)
	webset.Get("/:id/prospects", websetController.ListProspects)

	// Editor routes
	ed := api.Group("/editor")
	ed.Get("/variables", editorController.ListVariables)

	sessions := ed.Group("/sessions")
	sessions.Post("/", editorController.OpenSession)
	sessions.Get("/:id", editorController.GetSession)
	sessions.Delete("/:id", editorController.CloseSession)
	sessions.Patch("/:id", editorController.UpdateDetails)
	sessions.Post("/:id/toggle-enabled", editorController.ToggleEnabled)
	sessions.Post("/:id/publish", editorController.Publish)
	sessions.Post("/:id/discard", editorController.Discard)
	sessions.Put("/:id/tab", editorController.SetTab)
	sessions.Put("/:id/modal", editorController.OpenModal)
	sessions.Delete("/:id/modal", editorController.CloseModal)
	sessions.Post("/:id/ai-preview", editorController.GenerateAIPreview)

	steps := sessions.Group("/:id/steps")
	steps.Post("/", editorController.AddStep)
	steps.Patch("/:stepId", editorController.UpdateStep)
	steps.Delete("/:stepId", editorController.DeleteStep)
	steps.Put("/:stepId/ai-prompt", editorController.SetAIPrompt)
	steps.Delete("/:stepId/ai-prompt", editorController.ClearAIPrompt)
	steps.Post("/:stepId/manual", editorController.StartManual)
	steps.Post("/:stepId/variables", editorController.InsertVariable)
	steps.Get("/:stepId/preview", editorController.PreviewStep)
	steps.Post("/:stepId/test-send", editorController.TestSendStep)

	settings := sessions.Group("/:id/settings")
	settings.Patch("/", editorController.UpdateSettings)
	settings.Post("/exit-criteria/:criterion/toggle", editorController.ToggleExitCriterion)

	enrollment := sessions.Group("/:id/enrollment")
	enrollment.Put("/query", editorController.SetEnrollmentQuery)
	enrollment.Post("/recipients/:recipientId/toggle", editorController.ToggleRecipient)
	enrollment.Post("/select-all", editorController.SelectAllRecipients)
	enrollment.Post("/clear", editorController.ClearRecipients)
	enrollment.Post("/confirm", editorController.ConfirmEnrollment)

	// Exa integration routes with rate limiting
	exa := app.Group("/integration/exa", requestLogger(), middleware.RateLimiter(deps.RateLimit))
	exa.Post("/websets", exaController.CreateWebset)
	exa.Get("/websets", exaController.ListWebsets)
	exa.Get("/websets/:id", exaController.GetWebset)
	exa.Post("/websets/:id/searches", exaController.CreateSearch)
	exa.Get("/websets/:id/searches/:searchId", exaController.GetSearch)
	exa.Get("/websets/:id/items", exaController.ListItems)
	exa.Post("/websets/:id/enrichments", exaController.CreateEnrichment)
	exa.Post("/websets/:id/search-and-poll", exaController.SearchAndPoll)
	exa.Post("/setup/initialize", setupController.Initialize)

	app.Use(controller.NotFound)
}
