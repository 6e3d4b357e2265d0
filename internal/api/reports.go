package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/httputil"
	"github.com/banshee-data/movement.report/internal/traffic"
)

type speedsResponse struct {
	Units  string              `json:"units"`
	Speeds []traffic.SpeedStat `json:"speeds"`
}

type reportResponse struct {
	DatasetID   string    `json:"dataset_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Units       string    `json:"units"`
	traffic.Report
}

// snapshot loads the dataset and writes the error response on failure.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*traffic.Snapshot, *config.AnalysisConfig, bool) {
	snap, cfg, err := s.db.LoadSnapshot(r.PathValue("id"), s.defaults)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	return snap, cfg, true
}

// conflictContext bounds the conflict scan by ?timeout= or the configured
// conflict_timeout. Zero disables the bound.
func conflictContext(r *http.Request, cfg *config.AnalysisConfig) (context.Context, context.CancelFunc, error) {
	timeout := cfg.GetConflictTimeout()
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return nil, nil, errors.New("invalid 'timeout' parameter")
		}
		timeout = d
	}
	if timeout == 0 {
		ctx, cancel := context.WithCancel(r.Context())
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	return ctx, cancel, nil
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	visibleOnly := false
	if raw := r.URL.Query().Get("visible"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.BadRequest(w, "invalid 'visible' parameter")
			return
		}
		visibleOnly = v
	}
	snap, _, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	events := snap.EffectiveEvents()
	if visibleOnly {
		events = traffic.VisibleEvents(events)
	}
	httputil.WriteJSONOK(w, events)
}

func (s *Server) showVolumes(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, traffic.ComputeVolumes(snap))
}

func (s *Server) showSpeeds(w http.ResponseWriter, r *http.Request) {
	unit, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	snap, _, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, speedsResponse{
		Units:  unit,
		Speeds: traffic.ConvertSpeedStats(traffic.ComputeSpeeds(snap), unit),
	})
}

func (s *Server) showConflicts(w http.ResponseWriter, r *http.Request) {
	snap, cfg, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	ctx, cancel, err := conflictContext(r, cfg)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	defer cancel()

	rep, err := traffic.ComputeConflicts(ctx, snap)
	if err != nil && !errors.Is(err, traffic.ErrComputationTimeout) {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, rep)
}

func (s *Server) showViolations(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, traffic.ComputeViolations(snap))
}

func (s *Server) showQC(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, traffic.ComputeQCSummary(snap))
}

func (s *Server) showReport(w http.ResponseWriter, r *http.Request) {
	unit, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	snap, cfg, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	ctx, cancel, err := conflictContext(r, cfg)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	defer cancel()

	rep, err := traffic.ComputeAll(ctx, snap)
	if err != nil && !errors.Is(err, traffic.ErrComputationTimeout) {
		writeError(w, err)
		return
	}
	rep.Speeds = traffic.ConvertSpeedStats(rep.Speeds, unit)
	httputil.WriteJSONOK(w, reportResponse{
		DatasetID:   r.PathValue("id"),
		GeneratedAt: s.clock.Now().UTC(),
		Units:       unit,
		Report:      rep,
	})
}
