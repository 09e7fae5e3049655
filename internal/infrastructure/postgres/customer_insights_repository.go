package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/customer-insights-api/internal/domain/entity"
	"github.com/jhoicas/customer-insights-api/internal/domain/repository"
)

var _ repository.CustomerInsightsRepository = (*CustomerInsightsRepo)(nil)

// groupColumns columnas permitidas como discriminador (nunca se interpola input del cliente).
var groupColumns = map[repository.GroupField]string{
	repository.GroupByLocation:        "location_name",
	repository.GroupByDeviceBrand:     "brand_device",
	repository.GroupByDigitalInterest: "digital_interest",
	repository.GroupByGender:          "gender",
}

// CustomerInsightsRepo consultas de solo lectura sobre la tabla customers.
type CustomerInsightsRepo struct {
	q Querier
}

// NewCustomerInsightsRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerInsightsRepository(q Querier) *CustomerInsightsRepo {
	return &CustomerInsightsRepo{q: q}
}

// CountCustomers cuenta todos los registros.
func (r *CustomerInsightsRepo) CountCustomers(ctx context.Context) (int64, error) {
	var total int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return 0, fmt.Errorf("insights.CountCustomers: %w", err)
	}
	return total, nil
}

// CountDistinctLocations cuenta ubicaciones distintas; COUNT(DISTINCT) ignora NULL.
func (r *CustomerInsightsRepo) CountDistinctLocations(ctx context.Context) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(DISTINCT location_name) FROM customers`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("insights.CountDistinctLocations: %w", err)
	}
	return total, nil
}

// AverageAge promedio de (referenceYear - age). AVG devuelve NULL sin filas.
func (r *CustomerInsightsRepo) AverageAge(ctx context.Context, referenceYear int) (decimal.NullDecimal, error) {
	const query = `SELECT AVG($1::int - age) FROM customers`

	var avg decimal.NullDecimal
	if err := r.q.QueryRow(ctx, query, referenceYear).Scan(&avg); err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("insights.AverageAge: %w", err)
	}
	return avg, nil
}

// CountByVisitDate agrupa por el texto de la fecha; el parseo a día de la semana
// lo hace el caso de uso con el layout configurado. Una fecha NULL llega como ""
// y recibe el mismo trato que cualquier fecha que no respeta el layout.
func (r *CustomerInsightsRepo) CountByVisitDate(ctx context.Context) ([]repository.DateCount, error) {
	const query = `
	SELECT COALESCE(visit_date, '') AS visit_date, COUNT(*) AS total
	FROM customers
	GROUP BY COALESCE(visit_date, '')`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("insights.CountByVisitDate: %w", err)
	}
	defer rows.Close()

	results := []repository.DateCount{}
	for rows.Next() {
		var row repository.DateCount
		if err := rows.Scan(&row.VisitDate, &row.Count); err != nil {
			return nil, fmt.Errorf("insights.CountByVisitDate scan: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insights.CountByVisitDate rows: %w", err)
	}
	return results, nil
}

// TopGroups top-N de grupos por conteo descendente; los empates se resuelven por clave.
func (r *CustomerInsightsRepo) TopGroups(ctx context.Context, field repository.GroupField, limit int) ([]repository.GroupCount, error) {
	col, ok := groupColumns[field]
	if !ok {
		return nil, fmt.Errorf("insights.TopGroups: campo de agrupación desconocido %q", field)
	}
	query := fmt.Sprintf(`
	SELECT COALESCE(%[1]s, '') AS key, COUNT(*) AS total
	FROM customers
	GROUP BY COALESCE(%[1]s, '')
	ORDER BY total DESC, COALESCE(%[1]s, '') COLLATE "C" ASC
	LIMIT $1`, col)

	return r.scanGroups(ctx, "insights.TopGroups", query, limit)
}

// CountByGroup conteo de todos los grupos, sin ORDER BY ni LIMIT.
func (r *CustomerInsightsRepo) CountByGroup(ctx context.Context, field repository.GroupField) ([]repository.GroupCount, error) {
	col, ok := groupColumns[field]
	if !ok {
		return nil, fmt.Errorf("insights.CountByGroup: campo de agrupación desconocido %q", field)
	}
	query := fmt.Sprintf(`
	SELECT COALESCE(%[1]s, '') AS key, COUNT(*) AS total
	FROM customers
	GROUP BY COALESCE(%[1]s, '')`, col)

	return r.scanGroups(ctx, "insights.CountByGroup", query)
}

func (r *CustomerInsightsRepo) scanGroups(ctx context.Context, op, query string, args ...any) ([]repository.GroupCount, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	results := []repository.GroupCount{}
	for rows.Next() {
		var row repository.GroupCount
		if err := rows.Scan(&row.Key, &row.Count); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return results, nil
}

// RecentLogins últimos logins por (visit_date DESC, login_hour DESC).
// La comparación es textual byte a byte (COLLATE "C"), no cronológica: "12/31/2023" > "01/15/2024".
func (r *CustomerInsightsRepo) RecentLogins(ctx context.Context, limit int) ([]entity.CustomerEvent, error) {
	const query = `
	SELECT
	    COALESCE(name, ''),
	    COALESCE(email, ''),
	    COALESCE(location_name, ''),
	    COALESCE(brand_device, ''),
	    COALESCE(visit_date, ''),
	    COALESCE(login_hour, '')
	FROM customers
	ORDER BY visit_date COLLATE "C" DESC NULLS LAST,
	         login_hour COLLATE "C" DESC NULLS LAST
	LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("insights.RecentLogins: %w", err)
	}
	defer rows.Close()

	results := []entity.CustomerEvent{}
	for rows.Next() {
		var c entity.CustomerEvent
		if err := rows.Scan(&c.Name, &c.Email, &c.LocationName, &c.BrandDevice, &c.VisitDate, &c.LoginHour); err != nil {
			return nil, fmt.Errorf("insights.RecentLogins scan: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insights.RecentLogins rows: %w", err)
	}
	return results, nil
}

// Ping verifica la conexión (health check).
func (r *CustomerInsightsRepo) Ping(ctx context.Context) error {
	var one int
	if err := r.q.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("insights.Ping: %w", err)
	}
	return nil
}
