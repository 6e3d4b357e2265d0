package api

import (
	"errors"
	"net/http"

	"github.com/banshee-data/movement.report/internal/db"
	"github.com/banshee-data/movement.report/internal/httputil"
	"github.com/banshee-data/movement.report/internal/units"
	"github.com/banshee-data/movement.report/internal/version"
)

type datasetSummary struct {
	*db.Dataset
	Tracks int `json:"tracks"`
	Zones  int `json:"zones"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"version":  version.String(),
		"units":    s.units,
		"defaults": s.defaults,
	})
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.db.ListDatasets()
	if err != nil {
		writeError(w, err)
		return
	}
	if datasets == nil {
		datasets = []db.Dataset{}
	}
	httputil.WriteJSONOK(w, datasets)
}

func (s *Server) importDataset(w http.ResponseWriter, r *http.Request) {
	f, err := db.ReadDatasetFile(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if f.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}
	ds, err := s.db.ImportDataset(f)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ds)
}

func (s *Server) showDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ds, err := s.db.GetDataset(id)
	if err != nil {
		writeError(w, err)
		return
	}
	tracks, err := s.db.LoadTrajectories(id)
	if err != nil {
		writeError(w, err)
		return
	}
	zones, err := s.db.LoadZones(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, datasetSummary{Dataset: ds, Tracks: len(tracks), Zones: len(zones)})
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteDataset(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestUnits returns the ?units= override or the server default.
func (s *Server) requestUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, nil
	}
	if !units.IsValid(u) {
		return "", errors.New("invalid 'units' parameter, must be one of: " + units.GetValidUnitsString())
	}
	return u, nil
}
