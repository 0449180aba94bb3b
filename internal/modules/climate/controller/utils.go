package controller

import (
	"fmt"
	"strings"
	"time"
)

const (
	routePrecipitation = "/api/v1.0/precipitation"
	routeStations      = "/api/v1.0/stations"
	routeTobs          = "/api/v1.0/tobs"

	dateLayout = "2006-01-02"
	// windowDays is the length of the "last year" window ending at the most
	// recent measurement.
	windowDays = 365
)

var homeRoutes = []string{
	routePrecipitation,
	routeStations,
	routeTobs,
	"/api/v1.0/start_date  (e.g., /api/v1.0/2016-08-23) ",
	"/api/v1.0/start_date/end_date (e.g., /api/v1.0/2016-08-23/2017-08-23) ",
}

func homePage() string {
	var b strings.Builder
	b.WriteString("Welcome to the Climate App!<br/>")
	b.WriteString("Available Routes:<br/>")
	for _, r := range homeRoutes {
		b.WriteString(r)
		b.WriteString("<br/>")
	}
	return b.String()
}

// cutoffDate returns the date windowDays calendar days before latest, both in
// YYYY-MM-DD form.
func cutoffDate(latest string) (string, error) {
	t, err := time.ParseInLocation(dateLayout, latest, time.UTC)
	if err != nil {
		return "", fmt.Errorf("parse latest date %q: %w", latest, err)
	}
	return t.AddDate(0, 0, -windowDays).Format(dateLayout), nil
}
