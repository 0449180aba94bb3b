// Package seed builds a climate dataset from the CSV exports
// hawaii_stations.csv and hawaii_measurements.csv.
package seed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/doakesbacon/sqlalchemy-challenge/internal/modules/climate/types"
)

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

// ReadStations parses a station export. Columns are matched by header name,
// so extra columns and any column order are accepted.
func ReadStations(r io.Reader) ([]types.Station, error) {
	var out []types.Station
	err := readCSV(r, stationColumns, func(line int, rec map[string]string) error {
		s := types.Station{ID: rec["station"], Name: rec["name"]}
		var err error
		if s.Latitude, err = optionalFloat(rec["latitude"]); err != nil {
			return fmt.Errorf("line %d: latitude: %w", line, err)
		}
		if s.Longitude, err = optionalFloat(rec["longitude"]); err != nil {
			return fmt.Errorf("line %d: longitude: %w", line, err)
		}
		if s.Elevation, err = optionalFloat(rec["elevation"]); err != nil {
			return fmt.Errorf("line %d: elevation: %w", line, err)
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// ReadMeasurements parses a measurement export. An empty prcp cell is kept as
// nil; tobs is required.
func ReadMeasurements(r io.Reader) ([]types.Measurement, error) {
	var out []types.Measurement
	err := readCSV(r, measurementColumns, func(line int, rec map[string]string) error {
		m := types.Measurement{Station: rec["station"], Date: rec["date"]}
		if m.Station == "" || m.Date == "" {
			return fmt.Errorf("line %d: station and date are required", line)
		}
		var err error
		if m.Prcp, err = optionalFloat(rec["prcp"]); err != nil {
			return fmt.Errorf("line %d: prcp: %w", line, err)
		}
		if m.Tobs, err = strconv.ParseFloat(rec["tobs"], 64); err != nil {
			return fmt.Errorf("line %d: tobs: %w", line, err)
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// Load inserts stations and measurements in one transaction, preserving input
// order as rowid order.
func Load(ctx context.Context, db *sql.DB, stations []types.Station, measurements []types.Measurement) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stationStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare station insert: %w", err)
	}
	defer stationStmt.Close()
	for _, s := range stations {
		if _, err := stationStmt.ExecContext(ctx, s.ID, s.Name, s.Latitude, s.Longitude, s.Elevation); err != nil {
			return fmt.Errorf("insert station %s: %w", s.ID, err)
		}
	}

	measurementStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer measurementStmt.Close()
	for _, m := range measurements {
		if _, err := measurementStmt.ExecContext(ctx, m.Station, m.Date, m.Prcp, m.Tobs); err != nil {
			return fmt.Errorf("insert measurement %s %s: %w", m.Station, m.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func readCSV(r io.Reader, required []string, row func(line int, rec map[string]string) error) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("missing header row")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("missing column %q", col)
		}
	}

	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		rec := make(map[string]string, len(required))
		for _, col := range required {
			rec[col] = strings.TrimSpace(fields[index[col]])
		}
		if err := row(line, rec); err != nil {
			return err
		}
	}
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
