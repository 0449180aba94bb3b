package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doakesbacon/sqlalchemy-challenge/internal/modules/climate/types"
)

//go:embed sql/max-date.sql
var maxDateSQL string

//go:embed sql/precipitation-since.sql
var precipitationSinceSQL string

//go:embed sql/station-ids.sql
var stationIDsSQL string

//go:embed sql/most-active-station.sql
var mostActiveStationSQL string

//go:embed sql/temperatures-for-station-since.sql
var temperaturesForStationSinceSQL string

//go:embed sql/temperature-stats-from.sql
var temperatureStatsFromSQL string

//go:embed sql/temperature-stats-range.sql
var temperatureStatsRangeSQL string

// ErrNoMeasurements is returned when the measurement table has no rows.
var ErrNoMeasurements = errors.New("no measurements")

// ClimateRepository reads the measurement and station tables. Date arguments
// are YYYY-MM-DD strings compared lexicographically against stored dates.
type ClimateRepository interface {
	MaxDate(ctx context.Context) (string, error)
	PrecipitationSince(ctx context.Context, cutoff string) ([]types.Precipitation, error)
	StationIDs(ctx context.Context) ([]string, error)
	// MostActiveStation ties are broken by the smallest station id.
	MostActiveStation(ctx context.Context) (string, error)
	TemperaturesForStationSince(ctx context.Context, station string, cutoff string) ([]types.TemperatureObservation, error)
	// TemperatureStats aggregates over date >= start and, when end is non-nil,
	// date <= end.
	TemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error)
	// Snapshot runs fn with a repository pinned to one read transaction.
	Snapshot(ctx context.Context, fn func(ClimateRepository) error) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositoryImpl struct {
	db *sql.DB
	q  querier
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db, q: db}
}

func (r *repositoryImpl) Snapshot(ctx context.Context, fn func(ClimateRepository) error) error {
	if r.db == nil {
		// already inside a snapshot
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback snapshot", "error", err)
		}
	}()
	return fn(&repositoryImpl{q: tx})
}

func (r *repositoryImpl) MaxDate(ctx context.Context) (string, error) {
	var d sql.NullString
	if err := r.q.QueryRowContext(ctx, maxDateSQL).Scan(&d); err != nil {
		return "", fmt.Errorf("max date: %w", err)
	}
	if !d.Valid {
		return "", ErrNoMeasurements
	}
	return d.String, nil
}

func (r *repositoryImpl) PrecipitationSince(ctx context.Context, cutoff string) ([]types.Precipitation, error) {
	rows, err := r.q.QueryContext(ctx, precipitationSinceSQL, cutoff)
	if err != nil {
		return nil, fmt.Errorf("precipitation since %s: %w", cutoff, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close precipitation rows", "error", err)
		}
	}()
	var out []types.Precipitation
	for rows.Next() {
		var (
			p    types.Precipitation
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &prcp); err != nil {
			return nil, err
		}
		p.Prcp = nullFloat(prcp)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) StationIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, stationIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("station ids: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close station id rows", "error", err)
		}
	}()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) MostActiveStation(ctx context.Context) (string, error) {
	var station string
	err := r.q.QueryRowContext(ctx, mostActiveStationSQL).Scan(&station)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMeasurements
	}
	if err != nil {
		return "", fmt.Errorf("most active station: %w", err)
	}
	return station, nil
}

func (r *repositoryImpl) TemperaturesForStationSince(ctx context.Context, station string, cutoff string) ([]types.TemperatureObservation, error) {
	rows, err := r.q.QueryContext(ctx, temperaturesForStationSinceSQL, station, cutoff)
	if err != nil {
		return nil, fmt.Errorf("temperatures for %s since %s: %w", station, cutoff, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close temperature rows", "error", err)
		}
	}()
	var out []types.TemperatureObservation
	for rows.Next() {
		var o types.TemperatureObservation
		if err := rows.Scan(&o.Date, &o.Tobs); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) TemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error) {
	var row *sql.Row
	if end == nil {
		row = r.q.QueryRowContext(ctx, temperatureStatsFromSQL, start)
	} else {
		row = r.q.QueryRowContext(ctx, temperatureStatsRangeSQL, start, *end)
	}
	var lo, avg, hi sql.NullFloat64
	if err := row.Scan(&lo, &avg, &hi); err != nil {
		return types.TemperatureStats{}, fmt.Errorf("temperature stats: %w", err)
	}
	return types.TemperatureStats{
		Min: nullFloat(lo),
		Avg: nullFloat(avg),
		Max: nullFloat(hi),
	}, nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
