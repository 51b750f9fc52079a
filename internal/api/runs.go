package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/integrations/csvfile"
	"courierplan/internal/model"
	"courierplan/internal/obs"
	"courierplan/internal/params"
	"courierplan/internal/planner"
	"courierplan/internal/solution"
	"courierplan/internal/store"
	"courierplan/internal/vrp"
	"courierplan/internal/webhooks"
)

const maxBodyBytes = 32 << 20

// Run stream event types besides the webhook events.
const (
	EventProgress  = "solver.progress"
	EventHeartbeat = "heartbeat"
)

// SolveHandler handles POST /v1/solve. The body is a JSON SolveRequest or an
// order CSV (Content-Type text/csv) with modelType, maxCalcTime and async in
// the query string.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	s.startRun(w, r, 0)
}

// QuickHandler handles POST /v1/quick: the same input as /v1/solve, always
// sequenced by distance alone.
func (s *Server) QuickHandler(w http.ResponseWriter, r *http.Request) {
	s.startRun(w, r, params.ModeQuick)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request, force params.Mode) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr := s.getPrincipal(r)
	if !pr.CanPlan() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req, err := decodeSolveRequest(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	p, err := s.solveParams(req, force)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid parameters", err.Error(), r.URL.Path)
		return
	}
	metric, err := geo.MetricByName(req.Metric)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid parameters", err.Error(), r.URL.Path)
		return
	}
	set := instance.OrderSet{
		Orders:           req.Orders,
		NumCouriers:      req.NumCouriers,
		HasWeights:       req.HasWeights,
		HasPickupWindows: req.HasPickupWindows,
	}
	pj, _ := json.Marshal(p)
	run, err := s.Store.CreateRun(r.Context(), model.Run{
		TenantID:  pr.Tenant,
		ModelType: p.Mode.String(),
		State:     model.RunRunning,
		NumOrders: len(set.Orders),
		Params:    pj,
	})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}

	if req.Async {
		s.jobs.Add(1)
		go func() {
			defer s.jobs.Done()
			if _, err := s.execute(context.Background(), run, set, p, metric); err != nil {
				log.Printf("[api] run_id=%s async solve: %v", run.ID, err)
			}
		}()
		w.Header().Set("Location", "/v1/runs/"+run.ID)
		writeJSON(w, http.StatusAccepted, run)
		return
	}
	done, err := s.execute(r.Context(), run, set, p, metric)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Complete run failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, done)
}

func decodeSolveRequest(r *http.Request) (model.SolveRequest, error) {
	var req model.SolveRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "text/csv" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	set, err := csvfile.Parse(r.Body)
	if err != nil {
		return req, err
	}
	q := r.URL.Query()
	req = model.SolveRequest{
		Orders:           set.Orders,
		NumCouriers:      set.NumCouriers,
		HasWeights:       set.HasWeights,
		HasPickupWindows: set.HasPickupWindows,
		ModelType:        q.Get("modelType"),
		Metric:           q.Get("metric"),
		Async:            q.Get("async") == "true",
	}
	if v := q.Get("maxCalcTime"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("maxCalcTime: %w", err)
		}
		req.Params, _ = json.Marshal(map[string]int64{"max_calc_time": n})
	}
	return req, nil
}

// solveParams layers the request's parameter document over the stock
// parameters of its model type. An explicit modelType wins over the
// document's model_type; force wins over both.
func (s *Server) solveParams(req model.SolveRequest, force params.Mode) (params.Params, error) {
	mode := params.ModeScheduled
	explicit := force != 0 || req.ModelType != ""
	if req.ModelType != "" {
		m, err := params.ParseMode(req.ModelType)
		if err != nil {
			return params.Params{}, &params.ConfigError{Field: "modelType", Err: err}
		}
		mode = m
	}
	if force != 0 {
		mode = force
	}
	p := params.Default(mode)
	if len(req.Params) > 0 && string(req.Params) != "null" {
		var err error
		if p, err = params.Overlay(p, req.Params); err != nil {
			return params.Params{}, err
		}
		if explicit {
			p.Mode = mode
		}
	}
	if s.MaxCalcTime > 0 && (p.MaxCalcTime <= 0 || p.MaxCalcTime > s.MaxCalcTime) {
		p.MaxCalcTime = s.MaxCalcTime
	}
	return p, p.Validate()
}

// execute solves one run, writes its outcome back and announces it on the
// run's stream and to webhook subscribers.
func (s *Server) execute(ctx context.Context, run model.Run, set instance.OrderSet, p params.Params, metric geo.Metric) (model.Run, error) {
	ctx = obs.WithRunID(ctx, run.ID)
	req := planner.Request{Orders: set, Params: p, Metric: metric}
	if p.TrackSolverProgress {
		req.OnProgress = func(pg vrp.Progress) {
			s.Broker.Publish(run.ID, SSEEvent{Type: EventProgress, Data: map[string]any{
				"runId":     run.ID,
				"index":     pg.Index,
				"objective": pg.Objective,
				"best":      pg.Best,
				"stagnant":  pg.Stagnant,
				"stopped":   pg.Stopped,
			}})
		}
	}

	start := time.Now()
	res, err := planner.Plan(ctx, req)
	c := model.RunCompletion{
		State:        model.RunFailed,
		SolverStatus: res.Status(),
		StatusCode:   res.StatusCode(),
		DurationMs:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		c.Error = err.Error()
	} else {
		if c.Result, err = json.Marshal(res.Document()); err != nil {
			c.Error = err.Error()
		} else if res.Succeeded() {
			c.State = model.RunCompleted
		} else if res.Solution != nil {
			c.Error = res.Solution.Solver.Error
		}
	}

	// the request may be gone by now; the outcome is written regardless
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	done, err := s.Store.CompleteRun(wctx, run.TenantID, run.ID, c)
	if err != nil {
		return run, fmt.Errorf("complete run %s: %w", run.ID, err)
	}

	eventType := webhooks.EventRunCompleted
	if done.State != model.RunCompleted {
		eventType = webhooks.EventRunFailed
	}
	data := runEventData(done)
	s.Pub.Emit(wctx, done.TenantID, eventType, data)
	s.Broker.Publish(done.ID, SSEEvent{Type: eventType, Data: data})
	return done, nil
}

func runEventData(r model.Run) map[string]any {
	data := map[string]any{
		"runId":        r.ID,
		"modelType":    r.ModelType,
		"state":        r.State,
		"solverStatus": r.SolverStatus,
		"statusCode":   r.StatusCode,
		"numOrders":    r.NumOrders,
		"durationMs":   r.DurationMs,
	}
	if r.Error != "" {
		data["error"] = r.Error
	}
	return data
}

// RunsIndexHandler handles GET /v1/runs.
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr := s.getPrincipal(r)
	items, next, err := s.Store.ListRuns(r.Context(), pr.Tenant, r.URL.Query().Get("cursor"), queryLimit(r))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles /v1/runs/{id}, /v1/runs/{id}/verify and
// /v1/runs/{id}/events/stream.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/runs/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	pr := s.getPrincipal(r)
	run, err := s.Store.GetRun(r.Context(), pr.Tenant, id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", id, path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), path)
		return
	}

	switch {
	case len(parts) == 1:
		writeJSON(w, http.StatusOK, run)
	case len(parts) == 2 && parts[1] == "verify":
		s.verifyRun(w, r, run)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "stream":
		s.streamRun(w, r, run)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

func (s *Server) verifyRun(w http.ResponseWriter, r *http.Request, run model.Run) {
	if run.ModelType == params.ModeQuick.String() {
		writeProblem(w, http.StatusConflict, "Nothing to verify", "quick runs carry no solution document", r.URL.Path)
		return
	}
	if len(run.Result) == 0 {
		writeProblem(w, http.StatusConflict, "Nothing to verify", "run has no result yet", r.URL.Path)
		return
	}
	sol, err := solution.Decode(run.Result)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Stored result unreadable", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, solution.Verify(sol))
}

// streamRun sends the run's events as server-sent events until the run
// finishes or the client goes away.
func (s *Server) streamRun(w http.ResponseWriter, r *http.Request, run model.Run) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(run.ID)
	defer s.Broker.Unsubscribe(run.ID, ch)

	// the run may have finished between the lookup and the subscription
	if cur, err := s.Store.GetRun(r.Context(), run.TenantID, run.ID); err == nil {
		run = cur
	}
	writeSSE(w, EventHeartbeat, map[string]any{"runId": run.ID, "ts": time.Now().UTC().Format(time.RFC3339)})
	if run.State != model.RunRunning {
		writeSSE(w, finishedEvent(run), runEventData(run))
		flusher.Flush()
		return
	}
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt.Type, evt.Data)
			flusher.Flush()
			if evt.Type == webhooks.EventRunCompleted || evt.Type == webhooks.EventRunFailed {
				return
			}
		case <-time.After(15 * time.Second):
			writeSSE(w, EventHeartbeat, map[string]any{"runId": run.ID, "ts": time.Now().UTC().Format(time.RFC3339)})
			flusher.Flush()
		}
	}
}

func finishedEvent(run model.Run) string {
	if run.State == model.RunCompleted {
		return webhooks.EventRunCompleted
	}
	return webhooks.EventRunFailed
}

func writeSSE(w io.Writer, event string, data map[string]any) {
	b, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", b)
}

// VerifyHandler handles POST /v1/verify with a solution document as body.
func (s *Server) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Read body failed", err.Error(), r.URL.Path)
		return
	}
	sol, err := solution.Decode(body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solution", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, solution.Verify(sol))
}
