package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/customer-insights-api/internal/application/dto"
	"github.com/jhoicas/customer-insights-api/internal/application/usecase"
	"github.com/jhoicas/customer-insights-api/internal/domain"
	"github.com/jhoicas/customer-insights-api/pkg/logger"
	"github.com/jhoicas/customer-insights-api/pkg/metrics"
)

// NotFoundMessage cuerpo fijo de las respuestas 404.
const NotFoundMessage = "No data found"

// failureMessages mensaje genérico de 500 por operación; el detalle solo va al log.
var failureMessages = map[string]string{
	usecase.OpTotalCustomers:      "Failed to get total customers",
	usecase.OpTotalLocations:      "Failed to get total locations",
	usecase.OpAverageAge:          "Failed to get average age",
	usecase.OpLoginTrends:         "Failed to get login trends",
	usecase.OpLoginPerLocation:    "Failed to get login per location",
	usecase.OpRecentLogins:        "Failed to get recent logins",
	usecase.OpMostPopularLocation: "Failed to get most popular location",
	usecase.OpMostUsedDevice:      "Failed to get most used device brand",
	usecase.OpTopDigitalInterest:  "Failed to get top digital interest",
	usecase.OpGender:              "Failed to get gender distribution",
}

// CustomerInsightsHandler maneja los endpoints de analítica de clientes (solo lectura).
type CustomerInsightsHandler struct {
	uc      *usecase.CustomerInsightsUseCase
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewCustomerInsightsHandler construye el handler. m puede ser nil.
func NewCustomerInsightsHandler(uc *usecase.CustomerInsightsUseCase, log *logger.Logger, m *metrics.Metrics) *CustomerInsightsHandler {
	return &CustomerInsightsHandler{uc: uc, log: log.Component("customer_insights_handler"), metrics: m}
}

// TotalCustomers godoc
// @Summary      Total de clientes
// @Tags         customers
// @Produce      json
// @Success      200  {object}  dto.TotalCustomersDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/total-customers [get]
func (h *CustomerInsightsHandler) TotalCustomers(c *fiber.Ctx) error {
	out, err := h.uc.TotalCustomers(c.Context())
	return h.respond(c, usecase.OpTotalCustomers, out, err)
}

// TotalLocations godoc
// @Summary      Número de ubicaciones distintas
// @Tags         customers
// @Produce      json
// @Success      200  {object}  dto.TotalLocationsDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/total-locations [get]
func (h *CustomerInsightsHandler) TotalLocations(c *fiber.Ctx) error {
	out, err := h.uc.TotalLocations(c.Context())
	return h.respond(c, usecase.OpTotalLocations, out, err)
}

// AverageAge godoc
// @Summary      Promedio de (año actual - edad), redondeado
// @Tags         customers
// @Produce      json
// @Success      200  {object}  dto.AverageAgeDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/average-age [get]
func (h *CustomerInsightsHandler) AverageAge(c *fiber.Ctx) error {
	out, err := h.uc.AverageAge(c.Context())
	return h.respond(c, usecase.OpAverageAge, out, err)
}

// LoginTrends godoc
// @Summary      Logins por día de la semana (domingo a sábado)
// @Tags         logins
// @Produce      json
// @Success      200  {array}   dto.LoginTrendDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/login-trends [get]
func (h *CustomerInsightsHandler) LoginTrends(c *fiber.Ctx) error {
	out, err := h.uc.LoginTrends(c.Context())
	return h.respond(c, usecase.OpLoginTrends, out, err)
}

// LoginPerLocation godoc
// @Summary      Top 5 ubicaciones por número de logins
// @Tags         logins
// @Produce      json
// @Success      200  {array}   dto.LoginPerLocationDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/login-per-location [get]
func (h *CustomerInsightsHandler) LoginPerLocation(c *fiber.Ctx) error {
	out, err := h.uc.LoginPerLocation(c.Context())
	return h.respond(c, usecase.OpLoginPerLocation, out, err)
}

// RecentLogins godoc
// @Summary      Últimos 5 logins (orden textual por fecha y hora)
// @Tags         logins
// @Produce      json
// @Success      200  {array}   dto.RecentLoginDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/recent-logins [get]
func (h *CustomerInsightsHandler) RecentLogins(c *fiber.Ctx) error {
	out, err := h.uc.RecentLogins(c.Context())
	return h.respond(c, usecase.OpRecentLogins, out, err)
}

// MostPopularLocation godoc
// @Summary      Ubicación más popular y su porcentaje sobre el total
// @Tags         customers
// @Produce      json
// @Success      200  {object}  dto.PopularLocationDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/most-popular-location [get]
func (h *CustomerInsightsHandler) MostPopularLocation(c *fiber.Ctx) error {
	out, err := h.uc.MostPopularLocation(c.Context())
	return h.respond(c, usecase.OpMostPopularLocation, out, err)
}

// MostUsedDevice godoc
// @Summary      Marca de dispositivo más usada y su porcentaje
// @Tags         customers
// @Produce      json
// @Success      200  {object}  dto.DeviceBrandDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/most-used-device [get]
func (h *CustomerInsightsHandler) MostUsedDevice(c *fiber.Ctx) error {
	out, err := h.uc.MostUsedDevice(c.Context())
	return h.respond(c, usecase.OpMostUsedDevice, out, err)
}

// TopDigitalInterest godoc
// @Summary      Interés digital más frecuente y su porcentaje
// @Tags         customers
// @Produce      json
// @Success      200  {object}  dto.DigitalInterestDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/top-digital-interest [get]
func (h *CustomerInsightsHandler) TopDigitalInterest(c *fiber.Ctx) error {
	out, err := h.uc.TopDigitalInterest(c.Context())
	return h.respond(c, usecase.OpTopDigitalInterest, out, err)
}

// GenderDistribution godoc
// @Summary      Distribución por género
// @Tags         customers
// @Produce      json
// @Success      200  {array}   dto.GenderCountDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/gender [get]
func (h *CustomerInsightsHandler) GenderDistribution(c *fiber.Ctx) error {
	out, err := h.uc.GenderDistribution(c.Context())
	return h.respond(c, usecase.OpGender, out, err)
}

// respond traduce el resultado del caso de uso a HTTP. Es el único lugar donde
// se decide el status code:
//   - nil              → 200 con el cuerpo.
//   - domain.ErrNotFound → 404 {"error":"No data found"}.
//   - cualquier otro   → 500 con el mensaje genérico de la operación.
func (h *CustomerInsightsHandler) respond(c *fiber.Ctx, op string, body any, err error) error {
	if err == nil {
		return c.JSON(body)
	}

	if errors.Is(err, domain.ErrNotFound) {
		h.observeFailure(op, "not_found")
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: NotFoundMessage})
	}

	h.observeFailure(op, "operation")
	h.log.Error().Err(err).
		Str("op", op).
		Str("request_id", GetRequestID(c)).
		Msg("consulta de analítica fallida")

	msg, ok := failureMessages[op]
	if !ok {
		msg = "Internal server error"
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: msg})
}

func (h *CustomerInsightsHandler) observeFailure(op, kind string) {
	if h.metrics != nil {
		h.metrics.QueryFailuresTotal.WithLabelValues(op, kind).Inc()
	}
}
