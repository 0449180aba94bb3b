package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/doakesbacon/sqlalchemy-challenge/internal/seed"
	"github.com/doakesbacon/sqlalchemy-challenge/tools/migrate"
)

func main() {
	var dbPath = flag.String("db", "Resources/hawaii.sqlite", "dataset file to create or extend")
	var driver = flag.String("driver", "sqlite3", "database/sql driver: sqlite3 or sqlite")
	var measurementsPath = flag.StringP("measurements", "m", "", "hawaii_measurements.csv export")
	var stationsPath = flag.StringP("stations", "s", "", "hawaii_stations.csv export")
	var schemaOnly = flag.Bool("schema-only", false, "apply migrations without loading any rows")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen})))

	if !*schemaOnly && (*measurementsPath == "" || *stationsPath == "") {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "--measurements and --stations are required")
		os.Exit(2)
	}

	if err := run(context.Background(), *driver, *dbPath, *stationsPath, *measurementsPath, *schemaOnly); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, driver, dbPath, stationsPath, measurementsPath string, schemaOnly bool) error {
	conn, err := sql.Open(driver, dbPath)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if err := migrate.Run(ctx, conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if schemaOnly {
		slog.Info("schema ready", "db", dbPath)
		return nil
	}

	stations, err := readFile(stationsPath, seed.ReadStations)
	if err != nil {
		return err
	}
	measurements, err := readFile(measurementsPath, seed.ReadMeasurements)
	if err != nil {
		return err
	}

	if err := seed.Load(ctx, conn, stations, measurements); err != nil {
		return err
	}
	slog.Info("dataset seeded",
		"db", dbPath,
		"stations", len(stations),
		"measurements", len(measurements),
	)
	return nil
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
