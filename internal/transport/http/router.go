package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/okrboard/backend/internal/config"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/core/services"
	"github.com/okrboard/backend/internal/infrastructure/db"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/okrboard/backend/internal/infrastructure/memory"
	"github.com/okrboard/backend/internal/transport/http/handlers"
	httpmw "github.com/okrboard/backend/internal/transport/http/middleware"
	"gorm.io/gorm"
)

type RouterConfig struct {
	// DB selects the postgres store. When nil the in-memory store is used.
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) *services.Engine {
	var (
		taskRepo     ports.TaskRepository
		approvalRepo ports.ApprovalRepository
		timelineRepo ports.TimelineRepository
	)
	if cfg.DB != nil {
		taskRepo = db.NewTaskRepository(cfg.DB, cfg.Logger)
		approvalRepo = db.NewApprovalRepository(cfg.DB, cfg.Logger)
		timelineRepo = db.NewTimelineRepository(cfg.DB, cfg.Logger)
	} else {
		cfg.Logger.Warnw("store_memory_enabled")
		taskRepo = memory.NewTaskStore()
		approvalRepo = memory.NewApprovalStore()
		timelineRepo = memory.NewTimelineStore()
	}

	broker := services.NewChangeBroker(cfg.Logger.Named("feed"))
	engine := services.NewEngine(services.EngineConfig{
		TaskRepo:           taskRepo,
		ApprovalRepo:       approvalRepo,
		TimelineRepo:       timelineRepo,
		Feed:               broker,
		Logger:             cfg.Logger.Named("engine"),
		Retry:              services.RetryConfig(cfg.Config.Engine.Retry),
		CascadeConcurrency: cfg.Config.Engine.CascadeConcurrency,
		ReconcileRate:      cfg.Config.Engine.ReconcileRate,
		SweepInterval:      cfg.Config.Engine.SweepInterval,
		EnableLocks:        cfg.Config.Features.EnableLocks,
	})

	taskHandler := handlers.NewTaskHandler(engine, cfg.Logger)
	approvalHandler := handlers.NewApprovalHandler(engine.Gate, cfg.Logger)
	timelineHandler := handlers.NewTimelineHandler(timelineRepo)
	feedHandler := handlers.NewFeedHandler(broker, cfg.Logger)

	// Live task changes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws/tasks", websocket.New(feedHandler.Handle))

	// API v1 routes
	api := app.Group("/api/v1")

	// Task routes
	tasks := api.Group("/tasks", httpmw.Rights())
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Get("/", taskHandler.ListTasks)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Get("/:id/children", taskHandler.ListChildren)
	tasks.Put("/:id/milestones", taskHandler.CommitMilestones)
	tasks.Post("/:id/status", taskHandler.SetStatus)
	tasks.Post("/:id/reopen", taskHandler.Reopen)
	tasks.Post("/:id/expand", taskHandler.Expand)
	tasks.Post("/:id/reconcile", taskHandler.Reconcile)

	// Approval routes
	approvals := api.Group("/approvals", httpmw.AdminAuth(cfg.Config), httpmw.Rights())
	approvals.Get("/", approvalHandler.ListRequests)
	approvals.Get("/:id", approvalHandler.GetRequest)
	approvals.Post("/:id/resolve", approvalHandler.Resolve)

	// Timeline routes
	timeline := api.Group("/timeline", httpmw.AdminAuth(cfg.Config))
	timeline.Get("/", timelineHandler.GetEvents)

	return engine
}
