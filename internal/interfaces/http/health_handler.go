package http

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/customer-insights-api/internal/application/dto"
	"github.com/jhoicas/customer-insights-api/pkg/logger"
)

const (
	healthTimeout = 3 * time.Second
	statusUp      = "up"
	statusDown    = "down"
)

// Pinger dependencia verificable por el health check (PostgreSQL, Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reporta el estado del servicio y de sus dependencias.
type HealthHandler struct {
	service string
	checks  map[string]Pinger
	log     *logger.Logger
}

// NewHealthHandler construye el handler. checks: nombre → dependencia.
// La causa de un fallo solo va al log; la respuesta pública dice "down".
func NewHealthHandler(service string, checks map[string]Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{service: service, checks: checks, log: log.Component("health")}
}

// Check godoc
// @Summary      Estado del servicio y sus dependencias
// @Tags         ops
// @Produce      json
// @Success      200  {object}  dto.HealthDTO
// @Failure      503  {object}  dto.HealthDTO
// @Router       /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	requestID := GetRequestID(c)
	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.checks))
		healthy = true
	)

	// Los checks corren en paralelo; un fallo no cancela a los demás.
	var g errgroup.Group
	for name, p := range h.checks {
		name, p := name, p
		g.Go(func() error {
			status := statusUp
			if err := p.Ping(ctx); err != nil {
				status = statusDown
				h.log.Warn().Err(err).Str("check", name).
					Str("request_id", requestID).
					Msg("dependencia no disponible")
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != statusUp {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	body := dto.HealthDTO{Status: "ok", Service: h.service, Checks: results}
	if !healthy {
		body.Status = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}
