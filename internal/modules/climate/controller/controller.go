package controller

import (
	"net/http"

	"github.com/doakesbacon/sqlalchemy-challenge/internal/modules/climate/repository"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	repository repository.ClimateRepository
}

func NewClimateController(repository repository.ClimateRepository) ClimateController {
	return &climateControllerImpl{repository: repository}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleHome)
	mux.HandleFunc("GET "+routePrecipitation, c.handlePrecipitation)
	mux.HandleFunc("GET "+routeStations, c.handleStations)
	mux.HandleFunc("GET "+routeTobs, c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleTemperatureFrom)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleTemperatureRange)
}
