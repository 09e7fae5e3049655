package dto

// ── Contadores ────────────────────────────────────────────────────────────────

// TotalCustomersDTO respuesta de GET /api/total-customers.
type TotalCustomersDTO struct {
	TotalCustomers int64 `json:"totalCustomers"`
}

// TotalLocationsDTO respuesta de GET /api/total-locations.
type TotalLocationsDTO struct {
	TotalLocations int64 `json:"totalLocations"`
}

// AverageAgeDTO respuesta de GET /api/average-age (0 si no hay registros).
type AverageAgeDTO struct {
	AverageAge int64 `json:"averageAge"`
}

// ── Agrupaciones ──────────────────────────────────────────────────────────────

// LoginTrendDTO logins por día de la semana; solo días con al menos un registro.
type LoginTrendDTO struct {
	Day   string `json:"day"` // "Sunday" … "Saturday"
	Total int64  `json:"total"`
}

// LoginPerLocationDTO logins por ubicación (top 5).
type LoginPerLocationDTO struct {
	Location string `json:"location"`
	Total    int64  `json:"total"`
}

// GenderCountDTO registros por género.
type GenderCountDTO struct {
	Gender string `json:"gender"`
	Count  int64  `json:"count"`
}

// RecentLoginDTO un login reciente.
type RecentLoginDTO struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Location  string `json:"location"`
	Device    string `json:"device"`
	LoginTime string `json:"login_time"` // "<fecha> <hora>" tal como se almacenan
}

// ── Top-1 con porcentaje ──────────────────────────────────────────────────────
// percentage = count / total * 100 redondeado a 2 decimales, serializado como número.

// PopularLocationDTO respuesta de GET /api/most-popular-location.
type PopularLocationDTO struct {
	Location   string  `json:"location"`
	Percentage float64 `json:"percentage"`
}

// DeviceBrandDTO respuesta de GET /api/most-used-device.
type DeviceBrandDTO struct {
	Brand      string  `json:"brand"`
	Percentage float64 `json:"percentage"`
}

// DigitalInterestDTO respuesta de GET /api/top-digital-interest.
type DigitalInterestDTO struct {
	Interest   string  `json:"interest"`
	Percentage float64 `json:"percentage"`
}
