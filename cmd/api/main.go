package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"

	_ "github.com/jhoicas/customer-insights-api/docs"
	"github.com/jhoicas/customer-insights-api/internal/application/usecase"
	"github.com/jhoicas/customer-insights-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/customer-insights-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/customer-insights-api/internal/interfaces/http"
	"github.com/jhoicas/customer-insights-api/pkg/config"
	"github.com/jhoicas/customer-insights-api/pkg/logger"
	"github.com/jhoicas/customer-insights-api/pkg/metrics"
)

const (
	swaggerFile     = "./docs/swagger.json"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	m := metrics.New()
	insightsRepo := postgres.NewCustomerInsightsRepository(pool)
	insightsUC := usecase.NewCustomerInsightsUseCase(insightsRepo, usecase.CustomerInsightsConfig{
		VisitDateLayout: cfg.Insights.VisitDateLayout,
		StrictVisitDate: cfg.Insights.StrictVisitDate,
	}, log)

	healthChecks := map[string]httpRouter.Pinger{"postgres": insightsRepo}

	// Caché Redis opcional: sin REDIS_ADDR todas las consultas van directo a PostgreSQL.
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()

		cache := infraredis.NewResultCache(rdb, cfg.Redis, log, m)
		insightsUC.WithCache(cache)
		healthChecks["redis"] = cache
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("caché de resultados activa")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Customer Insights API",
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("swagger.json no encontrado, /docs deshabilitado")
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ServiceName:  cfg.App.Name,
		AllowOrigins: cfg.HTTP.AllowOrigins,
		Insights:     insightsUC,
		HealthChecks: healthChecks,
		Logger:       log,
		Metrics:      m,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := serve(app, cfg.HTTP.Addr(), quit, log); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP")
	}
	log.Info().Msg("aplicación detenida")
}

// serve escucha en addr hasta recibir una señal en quit y entonces apaga el servidor
// con un margen de shutdownTimeout. Si Listen falla (puerto ocupado, dirección inválida)
// devuelve el error en lugar de quedarse esperando la señal.
func serve(app *fiber.App, addr string, quit <-chan os.Signal, log *logger.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("servidor HTTP escuchando")
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err == nil {
			return errors.New("servidor HTTP finalizado sin señal de apagado")
		}
		return fmt.Errorf("escuchar en %s: %w", addr, err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("señal de apagado recibida, cerrando servidor...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("apagado del servidor: %w", err)
	}
	return nil
}
