package httpapi

import (
	"database/sql"
	"net/http"
)

// Feature registers one module's routes against the shared pool.
type Feature func(mux *http.ServeMux, db *sql.DB)

// NewMux returns a mux serving /healthz plus the routes of every feature, in
// the order given.
func NewMux(db *sql.DB, features ...Feature) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	for _, register := range features {
		register(mux, db)
	}
	return mux
}
