package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/httputil"
	"github.com/banshee-data/movement.report/internal/traffic"
)

// decodeJSON strictly decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) listCorrections(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetDataset(id); err != nil {
		writeError(w, err)
		return
	}
	corrections, err := s.db.LoadCorrections(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if corrections == nil {
		corrections = []traffic.Correction{}
	}
	httputil.WriteJSONOK(w, corrections)
}

func (s *Server) putCorrection(w http.ResponseWriter, r *http.Request) {
	track := r.PathValue("track")
	var c traffic.Correction
	if !decodeJSON(w, r, &c) {
		return
	}
	if c.TrackID != "" && c.TrackID != track {
		httputil.BadRequest(w, "track_id does not match the URL")
		return
	}
	c.TrackID = track
	if err := s.db.UpsertCorrection(r.PathValue("id"), c); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, c)
}

func (s *Server) deleteCorrection(w http.ResponseWriter, r *http.Request) {
	id, track := r.PathValue("id"), r.PathValue("track")
	if _, err := s.db.GetDataset(id); err != nil {
		writeError(w, err)
		return
	}
	removed, err := s.db.DeleteCorrection(id, track)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		httputil.NotFound(w, "no correction for track "+track)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) showZones(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetDataset(id); err != nil {
		writeError(w, err)
		return
	}
	zones, err := s.db.LoadZones(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if zones == nil {
		zones = []traffic.AccessZone{}
	}
	httputil.WriteJSONOK(w, zones)
}

func (s *Server) putZones(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var zones []traffic.AccessZone
	if !decodeJSON(w, r, &zones) {
		return
	}
	if _, err := s.db.GetDataset(id); err != nil {
		writeError(w, err)
		return
	}
	if err := s.db.ReplaceZones(id, zones); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, zones)
}

func (s *Server) showSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetDataset(id); err != nil {
		writeError(w, err)
		return
	}
	stored, err := s.db.LoadSettings(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]*config.AnalysisConfig{
		"stored":    stored,
		"effective": s.defaults.Merge(stored),
	})
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cfg := config.EmptyAnalysisConfig()
	if !decodeJSON(w, r, cfg) {
		return
	}
	if err := cfg.Validate(); err != nil {
		httputil.UnprocessableEntity(w, err.Error())
		return
	}
	if err := s.db.PutSettings(id, cfg); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, cfg)
}

func (s *Server) showForbidden(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetDataset(id); err != nil {
		writeError(w, err)
		return
	}
	fm, err := s.db.LoadForbiddenMovements(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteText(w, config.FormatForbiddenMovements(fm))
}

// putForbidden replaces the forbidden set from "code:description" lines.
func (s *Server) putForbidden(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.BadRequest(w, "failed to read body")
		return
	}
	table, err := s.db.LoadMovementRules()
	if err != nil {
		writeError(w, err)
		return
	}
	fm, err := config.ParseForbiddenMovements(string(body), table)
	if err != nil {
		httputil.UnprocessableEntity(w, err.Error())
		return
	}
	if err := s.db.ReplaceForbiddenMovements(id, fm); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteText(w, config.FormatForbiddenMovements(fm))
}
