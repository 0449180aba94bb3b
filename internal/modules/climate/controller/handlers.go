package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/doakesbacon/sqlalchemy-challenge/internal/modules/climate/repository"
	"github.com/doakesbacon/sqlalchemy-challenge/internal/modules/climate/types"
	"github.com/doakesbacon/sqlalchemy-challenge/internal/utils"
)

func (c *climateControllerImpl) handleHome(w http.ResponseWriter, r *http.Request) {
	utils.WriteHTML(w, http.StatusOK, homePage())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := map[string]*float64{}
	err := c.repository.Snapshot(ctx, func(repo repository.ClimateRepository) error {
		latest, err := repo.MaxDate(ctx)
		if err != nil {
			return err
		}
		cutoff, err := cutoffDate(latest)
		if err != nil {
			return err
		}
		rows, err := repo.PrecipitationSince(ctx, cutoff)
		if err != nil {
			return err
		}
		// later rows overwrite earlier ones for the same date
		for _, p := range rows {
			out[p.Date] = p.Prcp
		}
		return nil
	})
	if err != nil && !errors.Is(err, repository.ErrNoMeasurements) {
		slog.Error("precipitation: query failed", "error", err)
		utils.WriteServerError(w)
		return
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	ids, err := c.repository.StationIDs(r.Context())
	if err != nil {
		slog.Error("stations: query failed", "error", err)
		utils.WriteServerError(w)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	utils.WriteJSON(w, http.StatusOK, ids)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := []types.TemperatureObservation{}
	var station string
	err := c.repository.Snapshot(ctx, func(repo repository.ClimateRepository) error {
		var err error
		station, err = repo.MostActiveStation(ctx)
		if err != nil {
			return err
		}
		latest, err := repo.MaxDate(ctx)
		if err != nil {
			return err
		}
		cutoff, err := cutoffDate(latest)
		if err != nil {
			return err
		}
		rows, err := repo.TemperaturesForStationSince(ctx, station, cutoff)
		if err != nil {
			return err
		}
		out = append(out, rows...)
		return nil
	})
	if err != nil && !errors.Is(err, repository.ErrNoMeasurements) {
		slog.Error("tobs: query failed", "station", station, "error", err)
		utils.WriteServerError(w)
		return
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (c *climateControllerImpl) handleTemperatureFrom(w http.ResponseWriter, r *http.Request) {
	c.writeTemperatureStats(w, r, r.PathValue("start"), nil)
}

func (c *climateControllerImpl) handleTemperatureRange(w http.ResponseWriter, r *http.Request) {
	end := r.PathValue("end")
	c.writeTemperatureStats(w, r, r.PathValue("start"), &end)
}

// writeTemperatureStats answers with a one-element array, the shape clients of
// the aggregate routes already parse.
func (c *climateControllerImpl) writeTemperatureStats(w http.ResponseWriter, r *http.Request, start string, end *string) {
	stats, err := c.repository.TemperatureStats(r.Context(), start, end)
	if err != nil {
		attrs := []any{"start", start, "error", err}
		if end != nil {
			attrs = append(attrs, "end", *end)
		}
		slog.Error("temperature stats: query failed", attrs...)
		utils.WriteServerError(w)
		return
	}
	utils.WriteJSON(w, http.StatusOK, []types.TemperatureStats{stats})
}
