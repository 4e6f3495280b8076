package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cropplan/internal/export"
	"github.com/sells-group/cropplan/internal/interval"
	"github.com/sells-group/cropplan/internal/loader"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/planner"
	"github.com/sells-group/cropplan/internal/store"
)

// OptimizeResponse is returned by POST /v1/optimize.
type OptimizeResponse struct {
	RunID        string                              `json:"run_id,omitempty"`
	Result       *model.MultiFieldOptimizationResult `json:"result"`
	Candidates   int                                 `json:"candidates"`
	GreedyProfit float64                             `json:"greedy_profit"`
	Iterations   int                                 `json:"iterations"`
	StopReason   string                              `json:"stop_reason"`
}

// AdjustResponse is returned by POST /v1/runs/{id}/adjust.
type AdjustResponse struct {
	RunID   string                              `json:"run_id,omitempty"`
	Result  *model.MultiFieldOptimizationResult `json:"result"`
	Dropped []model.CropAllocation              `json:"dropped"`
}

// ScheduleResponse is returned by POST /v1/schedule.
type ScheduleResponse struct {
	Selected  []model.OptimizationIntermediateResult `json:"selected"`
	Count     int                                    `json:"count"`
	TotalCost float64                                `json:"total_cost"`
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(model.ErrInvalid, "api: read request body")
	}
	return data, nil
}

// overrides reads the preset, seed and save query parameters.
func overrides(r *http.Request) (planner.Overrides, bool, error) {
	q := r.URL.Query()
	o := planner.Overrides{Preset: q.Get("preset")}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return o, false, eris.Wrapf(model.ErrInvalid, "api: invalid seed %q", v)
		}
		o.Seed = &seed
	}
	save := true
	if v := q.Get("save"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, false, eris.Wrapf(model.ErrInvalid, "api: invalid save %q", v)
		}
		save = b
	}
	return o, save, nil
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	o, save, err := overrides(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.planner.Config(o); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		writeErr(w, err)
		return
	}
	plan, err := loader.ParsePlan(data)
	if err != nil {
		writeErr(w, err)
		return
	}

	out, run, err := s.planner.Optimize(r.Context(), plan, o, save && s.store != nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := OptimizeResponse{
		Result:       out.Result,
		Candidates:   out.Candidates,
		GreedyProfit: out.GreedyProfit,
		Iterations:   out.Search.Iterations,
		StopReason:   string(out.Search.StopReason),
	}
	if run != nil {
		resp.RunID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeErr(w, err)
		return
	}
	periods, err := loader.ParsePeriods(data)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse(s.planner.Schedule(periods)))
}

func scheduleResponse(sel interval.Selection) ScheduleResponse {
	selected := sel.Results
	if selected == nil {
		selected = []model.OptimizationIntermediateResult{}
	}
	return ScheduleResponse{Selected: selected, Count: sel.Count(), TotalCost: sel.TotalCost}
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	_, save, err := overrides(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		writeErr(w, err)
		return
	}
	// One document carries both the "plan" and the "moves" sections.
	plan, err := loader.ParsePlan(data)
	if err != nil {
		writeErr(w, err)
		return
	}
	moves, err := loader.ParseMoves(data)
	if err != nil {
		writeErr(w, err)
		return
	}

	out, run, err := s.planner.Adjust(r.Context(), chi.URLParam(r, "id"), plan, moves, save)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := AdjustResponse{Result: out.Result, Dropped: out.Dropped}
	if resp.Dropped == nil {
		resp.Dropped = []model.CropAllocation{}
	}
	if run != nil {
		resp.RunID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeErr(w, planner.ErrNoStore)
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:    model.RunStatus(q.Get("status")),
		Algorithm: q.Get("algorithm"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeErr(w, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeErr(w, err)
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeErr(w, planner.ErrNoStore)
		return
	}
	recs, err := s.store.ListAllocations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []store.AllocationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	wb, err := export.Workbook(run.Result)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+run.ID+`.xlsx"`)
	if err := wb.Write(w); err != nil {
		writeErr(w, eris.Wrap(err, "api: write workbook"))
	}
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	if s.store == nil {
		writeErr(w, planner.ErrNoStore)
		return nil, false
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return run, true
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Wrapf(model.ErrInvalid, "api: invalid integer %q", v)
	}
	return n, nil
}
