package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthDTO respuesta de GET /health.
type HealthDTO struct {
	Status  string            `json:"status"` // ok | degraded
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}
