package types

// Station is a seed record for one row of the station table. The API only
// ever returns station ids, so it is not serialized.
type Station struct {
	ID        string
	Name      string
	Latitude  *float64
	Longitude *float64
	Elevation *float64
}

// Precipitation is a measurement's date and rainfall; Prcp is nil when the
// station reported nothing that day.
type Precipitation struct {
	Date string
	Prcp *float64
}

type TemperatureObservation struct {
	Date string  `json:"date"`
	Tobs float64 `json:"tobs"`
}

// TemperatureStats holds the aggregate over a date range. All fields are nil
// when no measurement falls inside the range.
type TemperatureStats struct {
	Min *float64 `json:"Min Temperature"`
	Avg *float64 `json:"Avg Temperature"`
	Max *float64 `json:"Max Temperature"`
}

// Measurement is one row of the measurement table as exported to CSV.
type Measurement struct {
	Station string
	Date    string
	Prcp    *float64
	Tobs    float64
}
