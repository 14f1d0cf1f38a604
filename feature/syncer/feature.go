package syncer

import (
	"db-sync/core/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature exposes the sync service over HTTP.
type Feature struct {
	handler *Handler
}

// NewFeature creates the sync feature.
func NewFeature(service *Service, m *metrics.Metrics, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(service, m, logger)}
}

// Name returns the feature name.
func (f *Feature) Name() string {
	return "sync"
}

// IsEnabled reports whether the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
