package models

// Vehicle is a single catalog record. The JSON shape matches the suggestion
// cards the reply endpoint returns alongside the consultant reply.
type Vehicle struct {
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	Engine       string  `json:"engine"`
	FuelType     string  `json:"fuel_type"`
	Color        string  `json:"color"`
	MileageKM    int     `json:"mileage_km"`
	Doors        int     `json:"doors"`
	Transmission string  `json:"transmission"`
	BodyType     string  `json:"body_type"`
	Price        float64 `json:"price"`
	VIN          string  `json:"vin"`
}
