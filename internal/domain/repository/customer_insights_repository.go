package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/customer-insights-api/internal/domain/entity"
)

// GroupField discriminador sobre el que se agrupan los registros de clientes.
type GroupField string

const (
	GroupByLocation        GroupField = "location"
	GroupByDeviceBrand     GroupField = "device_brand"
	GroupByDigitalInterest GroupField = "digital_interest"
	GroupByGender          GroupField = "gender"
)

// GroupCount resultado crudo de un GROUP BY: valor del discriminador y número de registros.
type GroupCount struct {
	Key   string
	Count int64
}

// DateCount número de registros por texto de fecha de visita (sin parsear).
type DateCount struct {
	VisitDate string
	Count     int64
}

// CustomerInsightsRepository define las consultas de lectura sobre la colección de clientes.
// Las implementaciones son read-only (no modifican datos).
type CustomerInsightsRepository interface {
	// CountCustomers devuelve el número total de registros.
	CountCustomers(ctx context.Context) (int64, error)

	// CountDistinctLocations devuelve cuántas ubicaciones distintas (no nulas) existen.
	CountDistinctLocations(ctx context.Context) (int64, error)

	// AverageAge devuelve el promedio de (referenceYear - age).
	// Valid=false cuando no hay registros.
	AverageAge(ctx context.Context, referenceYear int) (decimal.NullDecimal, error)

	// CountByVisitDate agrupa por el texto de la fecha de visita.
	// Los registros sin fecha se excluyen.
	CountByVisitDate(ctx context.Context) ([]DateCount, error)

	// TopGroups devuelve los `limit` grupos con más registros, ordenados por conteo
	// descendente (empates por clave ascendente).
	TopGroups(ctx context.Context, field GroupField, limit int) ([]GroupCount, error)

	// CountByGroup devuelve el conteo de todos los grupos, sin orden ni límite.
	CountByGroup(ctx context.Context, field GroupField) ([]GroupCount, error)

	// RecentLogins devuelve `limit` registros ordenados por fecha y hora de login
	// descendentes, comparadas como texto.
	RecentLogins(ctx context.Context, limit int) ([]entity.CustomerEvent, error)
}
