package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/jhoicas/customer-insights-api/internal/application/usecase"
	"github.com/jhoicas/customer-insights-api/pkg/logger"
	"github.com/jhoicas/customer-insights-api/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName  string
	AllowOrigins string // CORS; "*" = cualquier origen
	Insights     *usecase.CustomerInsightsUseCase
	HealthChecks map[string]Pinger
	Logger       *logger.Logger
	Metrics      *metrics.Metrics // opcional
}

// Router instala los middlewares globales y registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: LocalRequestID,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.AllowOrigins,
		AllowMethods: "GET,HEAD,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	app.Use(RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	healthHandler := NewHealthHandler(deps.ServiceName, deps.HealthChecks, deps.Logger)
	app.Get("/health", healthHandler.Check)

	// Analítica de clientes (público, solo lectura)
	api := app.Group("/api")
	h := NewCustomerInsightsHandler(deps.Insights, deps.Logger, deps.Metrics)
	api.Get("/"+usecase.OpTotalCustomers, h.TotalCustomers)
	api.Get("/"+usecase.OpTotalLocations, h.TotalLocations)
	api.Get("/"+usecase.OpAverageAge, h.AverageAge)
	api.Get("/"+usecase.OpLoginTrends, h.LoginTrends)
	api.Get("/"+usecase.OpLoginPerLocation, h.LoginPerLocation)
	api.Get("/"+usecase.OpRecentLogins, h.RecentLogins)
	api.Get("/"+usecase.OpMostPopularLocation, h.MostPopularLocation)
	api.Get("/"+usecase.OpMostUsedDevice, h.MostUsedDevice)
	api.Get("/"+usecase.OpTopDigitalInterest, h.TopDigitalInterest)
	api.Get("/"+usecase.OpGender, h.GenderDistribution)
}
