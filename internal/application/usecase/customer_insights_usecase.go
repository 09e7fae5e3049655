package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/customer-insights-api/internal/application/dto"
	"github.com/jhoicas/customer-insights-api/internal/application/ports"
	"github.com/jhoicas/customer-insights-api/internal/domain"
	"github.com/jhoicas/customer-insights-api/internal/domain/repository"
	"github.com/jhoicas/customer-insights-api/pkg/logger"
)

// Operaciones expuestas. Se usan como ruta, clave de caché y etiqueta de métricas.
const (
	OpTotalCustomers      = "total-customers"
	OpTotalLocations      = "total-locations"
	OpAverageAge          = "average-age"
	OpLoginTrends         = "login-trends"
	OpLoginPerLocation    = "login-per-location"
	OpRecentLogins        = "recent-logins"
	OpMostPopularLocation = "most-popular-location"
	OpMostUsedDevice      = "most-used-device"
	OpTopDigitalInterest  = "top-digital-interest"
	OpGender              = "gender"
)

const (
	topLocationsLimit = 5
	recentLoginsLimit = 5
)

var hundred = decimal.NewFromInt(100)

// CustomerInsightsConfig reglas de interpretación de los registros.
type CustomerInsightsConfig struct {
	VisitDateLayout string // layout Go, p. ej. "01/02/2006"
	StrictVisitDate bool   // true: una fecha inválida hace fallar login-trends completo
}

// CustomerInsightsUseCase ejecuta las consultas de analítica de clientes y da forma a los resultados:
//   - Redondeos (edad promedio al entero, porcentajes a 2 decimales).
//   - Mapeo de fechas de visita a día de la semana.
//   - Clasificación de errores: domain.ErrNotFound o *domain.OperationError.
type CustomerInsightsUseCase struct {
	repo  repository.CustomerInsightsRepository
	cache ports.ResultCache // nil = sin caché
	cfg   CustomerInsightsConfig
	log   *logger.Logger
	now   func() time.Time
}

// NewCustomerInsightsUseCase construye el caso de uso.
func NewCustomerInsightsUseCase(
	repo repository.CustomerInsightsRepository,
	cfg CustomerInsightsConfig,
	log *logger.Logger,
) *CustomerInsightsUseCase {
	return &CustomerInsightsUseCase{
		repo: repo,
		cfg:  cfg,
		log:  log.Component("customer_insights"),
		now:  time.Now,
	}
}

// WithCache activa la caché de resultados.
func (uc *CustomerInsightsUseCase) WithCache(cache ports.ResultCache) *CustomerInsightsUseCase {
	uc.cache = cache
	return uc
}

// WithClock reemplaza el reloj (año de referencia para la edad promedio).
func (uc *CustomerInsightsUseCase) WithClock(now func() time.Time) *CustomerInsightsUseCase {
	uc.now = now
	return uc
}

// TotalCustomers cuenta todos los registros.
func (uc *CustomerInsightsUseCase) TotalCustomers(ctx context.Context) (*dto.TotalCustomersDTO, error) {
	return cached(ctx, uc, OpTotalCustomers, OpTotalCustomers, func(ctx context.Context) (*dto.TotalCustomersDTO, error) {
		total, err := uc.repo.CountCustomers(ctx)
		if err != nil {
			return nil, err
		}
		return &dto.TotalCustomersDTO{TotalCustomers: total}, nil
	})
}

// TotalLocations cuenta las ubicaciones distintas.
func (uc *CustomerInsightsUseCase) TotalLocations(ctx context.Context) (*dto.TotalLocationsDTO, error) {
	return cached(ctx, uc, OpTotalLocations, OpTotalLocations, func(ctx context.Context) (*dto.TotalLocationsDTO, error) {
		total, err := uc.repo.CountDistinctLocations(ctx)
		if err != nil {
			return nil, err
		}
		return &dto.TotalLocationsDTO{TotalLocations: total}, nil
	})
}

// AverageAge promedio de (año actual - age) redondeado al entero más cercano; 0 sin registros.
func (uc *CustomerInsightsUseCase) AverageAge(ctx context.Context) (*dto.AverageAgeDTO, error) {
	year := uc.now().Year()
	key := fmt.Sprintf("%s:%d", OpAverageAge, year)
	return cached(ctx, uc, OpAverageAge, key, func(ctx context.Context) (*dto.AverageAgeDTO, error) {
		avg, err := uc.repo.AverageAge(ctx, year)
		if err != nil {
			return nil, err
		}
		if !avg.Valid {
			return &dto.AverageAgeDTO{AverageAge: 0}, nil
		}
		return &dto.AverageAgeDTO{AverageAge: avg.Decimal.Round(0).IntPart()}, nil
	})
}

// LoginTrends cuenta logins por día de la semana (Sunday=1 … Saturday=7), en ese orden,
// omitiendo los días sin registros.
func (uc *CustomerInsightsUseCase) LoginTrends(ctx context.Context) ([]dto.LoginTrendDTO, error) {
	return cached(ctx, uc, OpLoginTrends, OpLoginTrends, func(ctx context.Context) ([]dto.LoginTrendDTO, error) {
		rows, err := uc.repo.CountByVisitDate(ctx)
		if err != nil {
			return nil, err
		}

		// Índice = time.Weekday (0 = Sunday), es decir id del bucket - 1.
		var buckets [7]int64
		var skipped int64
		for _, r := range rows {
			day, err := time.Parse(uc.cfg.VisitDateLayout, r.VisitDate)
			if err != nil {
				if uc.cfg.StrictVisitDate {
					return nil, fmt.Errorf("%w %q: %v", domain.ErrInvalidVisitDate, r.VisitDate, err)
				}
				skipped += r.Count
				continue
			}
			buckets[day.Weekday()] += r.Count
		}
		if skipped > 0 {
			uc.log.Warn().Int64("skipped", skipped).Str("layout", uc.cfg.VisitDateLayout).
				Msg("registros con fecha de visita inválida omitidos")
		}

		trends := make([]dto.LoginTrendDTO, 0, len(buckets))
		for wd, total := range buckets {
			if total == 0 {
				continue
			}
			trends = append(trends, dto.LoginTrendDTO{Day: time.Weekday(wd).String(), Total: total})
		}
		return trends, nil
	})
}

// LoginPerLocation top 5 de ubicaciones por número de registros.
func (uc *CustomerInsightsUseCase) LoginPerLocation(ctx context.Context) ([]dto.LoginPerLocationDTO, error) {
	return cached(ctx, uc, OpLoginPerLocation, OpLoginPerLocation, func(ctx context.Context) ([]dto.LoginPerLocationDTO, error) {
		rows, err := uc.repo.TopGroups(ctx, repository.GroupByLocation, topLocationsLimit)
		if err != nil {
			return nil, err
		}
		out := make([]dto.LoginPerLocationDTO, 0, len(rows))
		for _, r := range rows {
			out = append(out, dto.LoginPerLocationDTO{Location: r.Key, Total: r.Count})
		}
		return out, nil
	})
}

// RecentLogins los 5 logins más recientes según el orden textual de fecha y hora.
func (uc *CustomerInsightsUseCase) RecentLogins(ctx context.Context) ([]dto.RecentLoginDTO, error) {
	return cached(ctx, uc, OpRecentLogins, OpRecentLogins, func(ctx context.Context) ([]dto.RecentLoginDTO, error) {
		rows, err := uc.repo.RecentLogins(ctx, recentLoginsLimit)
		if err != nil {
			return nil, err
		}
		out := make([]dto.RecentLoginDTO, 0, len(rows))
		for _, r := range rows {
			out = append(out, dto.RecentLoginDTO{
				Name:      r.Name,
				Email:     r.Email,
				Location:  r.LocationName,
				Device:    r.BrandDevice,
				LoginTime: r.LoginTime(),
			})
		}
		return out, nil
	})
}

// MostPopularLocation ubicación con más registros y su porcentaje sobre el total.
func (uc *CustomerInsightsUseCase) MostPopularLocation(ctx context.Context) (*dto.PopularLocationDTO, error) {
	return cached(ctx, uc, OpMostPopularLocation, OpMostPopularLocation, func(ctx context.Context) (*dto.PopularLocationDTO, error) {
		top, pct, err := uc.topShare(ctx, repository.GroupByLocation)
		if err != nil {
			return nil, err
		}
		return &dto.PopularLocationDTO{Location: top.Key, Percentage: pct}, nil
	})
}

// MostUsedDevice marca de dispositivo más usada y su porcentaje.
func (uc *CustomerInsightsUseCase) MostUsedDevice(ctx context.Context) (*dto.DeviceBrandDTO, error) {
	return cached(ctx, uc, OpMostUsedDevice, OpMostUsedDevice, func(ctx context.Context) (*dto.DeviceBrandDTO, error) {
		top, pct, err := uc.topShare(ctx, repository.GroupByDeviceBrand)
		if err != nil {
			return nil, err
		}
		return &dto.DeviceBrandDTO{Brand: top.Key, Percentage: pct}, nil
	})
}

// TopDigitalInterest interés digital más frecuente y su porcentaje.
func (uc *CustomerInsightsUseCase) TopDigitalInterest(ctx context.Context) (*dto.DigitalInterestDTO, error) {
	return cached(ctx, uc, OpTopDigitalInterest, OpTopDigitalInterest, func(ctx context.Context) (*dto.DigitalInterestDTO, error) {
		top, pct, err := uc.topShare(ctx, repository.GroupByDigitalInterest)
		if err != nil {
			return nil, err
		}
		return &dto.DigitalInterestDTO{Interest: top.Key, Percentage: pct}, nil
	})
}

// GenderDistribution conteo por género, sin orden ni límite.
func (uc *CustomerInsightsUseCase) GenderDistribution(ctx context.Context) ([]dto.GenderCountDTO, error) {
	return cached(ctx, uc, OpGender, OpGender, func(ctx context.Context) ([]dto.GenderCountDTO, error) {
		rows, err := uc.repo.CountByGroup(ctx, repository.GroupByGender)
		if err != nil {
			return nil, err
		}
		out := make([]dto.GenderCountDTO, 0, len(rows))
		for _, r := range rows {
			out = append(out, dto.GenderCountDTO{Gender: r.Key, Count: r.Count})
		}
		return out, nil
	})
}

// topShare consulta en paralelo el total de registros y el grupo principal de field.
// Devuelve domain.ErrNotFound si no hay grupos.
func (uc *CustomerInsightsUseCase) topShare(
	ctx context.Context,
	field repository.GroupField,
) (repository.GroupCount, float64, error) {
	var (
		total int64
		top   []repository.GroupCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := uc.repo.CountCustomers(gctx)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		rows, err := uc.repo.TopGroups(gctx, field, 1)
		if err != nil {
			return fmt.Errorf("top %s: %w", field, err)
		}
		top = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return repository.GroupCount{}, 0, err
	}
	if len(top) == 0 {
		return repository.GroupCount{}, 0, domain.ErrNotFound
	}
	return top[0], Percentage(top[0].Count, total), nil
}

// Percentage devuelve count/total*100 redondeado a 2 decimales, acotado a [0, 100].
func Percentage(count, total int64) float64 {
	if count <= 0 || total <= 0 {
		return 0
	}
	// Las dos consultas no comparten snapshot: un total menor que el grupo se acota a 100%.
	if total < count {
		total = count
	}
	return decimal.NewFromInt(count).
		Mul(hundred).
		Div(decimal.NewFromInt(total)).
		Round(2).
		InexactFloat64()
}

// cached ejecuta compute, pasando por la caché si está configurada, y clasifica el error.
func cached[T any](
	ctx context.Context,
	uc *CustomerInsightsUseCase,
	op, key string,
	compute func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if uc.cache == nil {
		v, err := compute(ctx)
		if err != nil {
			return zero, domain.Fail(op, err)
		}
		return v, nil
	}

	data, _, err := uc.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, domain.Fail(op, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, domain.Fail(op, fmt.Errorf("decodificar caché: %w", err))
	}
	return v, nil
}
