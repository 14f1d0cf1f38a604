package syncer

import (
	"errors"

	"db-sync/core/logger"
	"db-sync/core/metrics"
	"db-sync/core/reconcile"
	"db-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service *Service
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. m may be nil.
func NewHandler(service *Service, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{service: service, metrics: m, logger: logger}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Get("/tables", h.HandleShowTables)
	group.Get("/tables/:table/columns", h.HandleColumns)
	group.Get("/reports", h.HandleReports)
	group.Post("/:operation", h.HandleRun)

	if h.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.metrics.Handler()))
	}
}

// HandleRun runs one sync operation and returns its report.
// Query parameter dry_run=true simulates every write.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	// Params are only valid for the request; op ends up in metric labels and the report.
	op := fiberutils.CopyString(c.Params("operation"))
	dryRun := utils.ToBool(c.Query("dry_run"))

	l.Info("Sync requested", zap.String("operation", op), zap.Bool("dry_run", dryRun))
	report, err := h.service.Run(c.Context(), op, RunOptions{DryRun: dryRun})
	if err != nil {
		l.Error("Sync failed", zap.String("operation", op), zap.Error(err))
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, ErrRunInProgress):
			status = fiber.StatusConflict
		case errors.Is(err, reconcile.ErrInvalidArgument), errors.Is(err, reconcile.ErrConfiguration):
			status = fiber.StatusBadRequest
		}
		body := fiber.Map{"error": err.Error()}
		if report != nil {
			body["report"] = report
		}
		return c.Status(status).JSON(body)
	}
	return c.JSON(report)
}

// HandleShowTables writes the source table list and returns its summary.
func (h *Handler) HandleShowTables(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	summary, err := h.service.ShowTables(c.Context())
	if err != nil {
		l.Error("Show tables failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(summary)
}

// HandleColumns describes the columns of one source table.
func (h *Handler) HandleColumns(c *fiber.Ctx) error {
	table := fiberutils.CopyString(c.Params("table"))
	columns, err := h.service.Columns(c.Context(), table)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Describing table failed", zap.String("table", table), zap.Error(err))
		status := fiber.StatusInternalServerError
		if errors.Is(err, reconcile.ErrInvalidArgument) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"table": table, "columns": columns})
}

// HandleReports lists published run reports.
func (h *Handler) HandleReports(c *fiber.Ctx) error {
	reports, err := h.service.Reports(c.Context())
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Listing reports failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if reports == nil {
		reports = []ReportInfo{}
	}
	return c.JSON(fiber.Map{"reports": reports})
}
