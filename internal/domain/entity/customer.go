package entity

// CustomerEvent representa un registro de cliente/visita. Los registros los carga un
// proceso externo; este servicio solo los lee.
type CustomerEvent struct {
	Name            string
	Email           string
	LocationName    string
	BrandDevice     string
	Age             int
	Gender          string
	DigitalInterest string
	VisitDate       string // texto, p. ej. "01/07/2024" (MM/DD/YYYY)
	LoginHour       string // texto, p. ej. "14:05"
}

// LoginTime concatena fecha y hora de login tal como se almacenan.
func (c CustomerEvent) LoginTime() string {
	return c.VisitDate + " " + c.LoginHour
}
