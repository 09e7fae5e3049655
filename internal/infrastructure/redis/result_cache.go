// Package redis implementa la caché opcional de resultados de analítica sobre go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/customer-insights-api/internal/application/ports"
	"github.com/jhoicas/customer-insights-api/pkg/config"
	"github.com/jhoicas/customer-insights-api/pkg/logger"
	"github.com/jhoicas/customer-insights-api/pkg/metrics"
)

const (
	keyPrefix      = "insights:"
	defaultTimeout = 200 * time.Millisecond
)

var _ ports.ResultCache = (*ResultCache)(nil)

// ResultCache caché read-through con TTL. Las cargas concurrentes de la misma clave
// se colapsan en una sola consulta (singleflight).
type ResultCache struct {
	rdb     *goredis.Client
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewClient crea el cliente Redis y verifica la conexión con PING.
// Sin reintentos y con timeouts cortos: la caché es prescindible y un Redis caído
// no debe alargar las peticiones.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	timeout := opTimeout(cfg)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		DialTimeout:           timeout,
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		PoolTimeout:           timeout,
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewResultCache construye el adaptador con el TTL y el timeout de cfg. m puede ser nil.
func NewResultCache(rdb *goredis.Client, cfg config.RedisConfig, log *logger.Logger, m *metrics.Metrics) *ResultCache {
	return &ResultCache{
		rdb:     rdb,
		ttl:     cfg.TTL,
		timeout: opTimeout(cfg),
		log:     log.Component("result_cache"),
		metrics: m,
	}
}

func opTimeout(cfg config.RedisConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return defaultTimeout
	}
	return cfg.Timeout
}

// GetOrLoad devuelve el valor cacheado o ejecuta load. Un Redis caído no rompe la
// petición: se registra el error y se consulta directamente.
func (c *ResultCache) GetOrLoad(
	ctx context.Context,
	key string,
	load func(ctx context.Context) ([]byte, error),
) ([]byte, bool, error) {
	fullKey := keyPrefix + key
	data, ok, reachable := c.get(ctx, fullKey)
	if ok {
		c.hit()
		return data, true, nil
	}
	c.miss()

	v, err, _ := c.group.Do(fullKey, func() (any, error) {
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		// Lectura fallida por conexión: se omite también la escritura.
		if reachable {
			c.set(ctx, fullKey, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Ping verifica la conexión (health check).
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// get devuelve (valor, encontrado, alcanzable). Un miss normal (redis.Nil) es alcanzable.
func (c *ResultCache) get(ctx context.Context, key string) ([]byte, bool, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.rdb.Get(opCtx, key).Bytes()
	switch {
	case err == nil:
		return data, true, true
	case errors.Is(err, goredis.Nil):
		return nil, false, true
	default:
		c.log.Warn().Err(err).Str("key", key).Msg("lectura de caché fallida")
		return nil, false, false
	}
}

func (c *ResultCache) set(ctx context.Context, key string, data []byte) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rdb.Set(opCtx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("no se pudo guardar en caché")
	}
}

func (c *ResultCache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
