package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ntm-sim/ntm-sim/internal/history"
	"github.com/ntm-sim/ntm-sim/sim"
	"github.com/ntm-sim/ntm-sim/sim/machine"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// createRunsRequest is the JSON body for POST /v1/runs.
type createRunsRequest struct {
	Machine string   `json:"machine"`          // description in the given format
	Format  string   `json:"format,omitempty"` // text (default) or yaml
	Inputs  []string `json:"inputs,omitempty"` // replaces the description's inputs when set
	Limit   int64    `json:"limit,omitempty"`  // overrides the description's limit when > 0
}

type runResult struct {
	ID      string         `json:"id,omitempty"` // set when the run was stored
	Input   string         `json:"input"`
	Verdict string         `json:"verdict"`
	Code    string         `json:"code"`
	Rounds  int64          `json:"rounds"`
	Metrics sim.RunMetrics `json:"metrics"`
}

type createRunsResponse struct {
	MachineHash string      `json:"machine_hash"`
	Limit       int64       `json:"limit"` // iteration limit the inputs ran with
	Results     []runResult `json:"results"`
}

type listRunsResponse struct {
	Runs   []*history.Run `json:"runs"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (s *Server) parseMachine(req *createRunsRequest) (*machine.Machine, error) {
	tableCfg := s.config.TableConfig()
	switch req.Format {
	case "", "text":
		return machine.Parse(strings.NewReader(req.Machine), tableCfg)
	case "yaml":
		return machine.DecodeYAML(strings.NewReader(req.Machine), tableCfg)
	}
	return nil, fmt.Errorf("unknown format %q; valid: text, yaml", req.Format)
}

func (s *Server) handleCreateRuns(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	var req createRunsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Limit < 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be >= 0")
		return
	}

	m, err := s.parseMachine(&req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	inputs := m.Inputs
	if req.Inputs != nil {
		inputs = req.Inputs
		for i, in := range inputs {
			if err := m.CheckInput(in); err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("inputs[%d]: %v", i, err))
				return
			}
		}
	}
	if len(inputs) == 0 {
		s.writeError(w, http.StatusBadRequest, "no inputs to run")
		return
	}
	if len(inputs) > s.config.Server.MaxInputs {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("too many inputs: %d (max %d)", len(inputs), s.config.Server.MaxInputs))
		return
	}

	simCfg := s.config.SimConfig(m.Limit)
	if req.Limit > 0 {
		simCfg.IterationLimit = req.Limit
	}
	if simCfg.IterationLimit > s.config.Server.MaxLimit {
		simCfg.IterationLimit = s.config.Server.MaxLimit
	}
	syms := make([][]sim.Symbol, len(inputs))
	for i, in := range inputs {
		syms[i] = sim.SymbolsOf(in)
	}

	start := time.Now()
	results, err := sim.RunBatch(r.Context(), m.Table, simCfg, syms, s.config.Run.Workers)
	if errors.Is(err, sim.ErrOutOfMemory) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("run batch")
		s.writeError(w, http.StatusInternalServerError, "run failed")
		return
	}
	hash := m.Hash()
	s.logger.WithFields(logrus.Fields{
		"machine":     hash[:12],
		"inputs":      len(inputs),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("batch decided")

	resp := createRunsResponse{MachineHash: hash, Limit: simCfg.IterationLimit, Results: make([]runResult, len(results))}
	for i, res := range results {
		observeRun(res)
		resp.Results[i] = runResult{
			Input:   inputs[i],
			Verdict: res.Verdict.String(),
			Code:    string(res.Verdict.Code()),
			Rounds:  res.Rounds,
			Metrics: res.Metrics,
		}
		if s.store == nil {
			continue
		}
		run := history.NewRun(hash, inputs[i], res)
		if err := s.store.RecordRun(r.Context(), run); err != nil {
			s.logger.WithError(err).Error("record run")
			continue
		}
		resp.Results[i].ID = run.ID
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("get run")
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("list runs")
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runs == nil {
		runs = []*history.Run{}
	}

	s.writeJSON(w, http.StatusOK, listRunsResponse{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("get run stats")
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("encode response")
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
