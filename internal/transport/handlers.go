package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/aggregate"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/domain/queue"
	"github.com/rpggio/waitwatch/internal/ingest"
)

const maxBodyBytes = 4 * 1024 * 1024

type acceptedResponse struct {
	Accepted int `json:"accepted"`
}

// handleFrames accepts a single JSON frame or an array of frames.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if s.services.Frames == nil {
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "frame ingestion is not enabled")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
		return
	}

	frames, err := decodeFrames(body)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	for _, frame := range frames {
		if err := s.services.Frames.Push(r.Context(), frame); err != nil {
			WriteDomainError(w, err)
			return
		}
	}
	WriteJSON(w, http.StatusAccepted, acceptedResponse{Accepted: len(frames)})
}

func decodeFrames(body []byte) ([]occupancy.Frame, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", occupancy.ErrInvalidInput)
	}
	if body[0] != '[' {
		frame, err := ingest.DecodeFrame(body, 1)
		if err != nil {
			return nil, err
		}
		return []occupancy.Frame{frame}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", occupancy.ErrInvalidInput, err)
	}
	frames := make([]occupancy.Frame, 0, len(raw))
	for i, item := range raw {
		frame, err := ingest.DecodeFrame(item, i+1)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

type predictResponse struct {
	*estimate.Prediction
	Minutes float64    `json:"minutes"`
	Mode    queue.Mode `json:"mode"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	req, mode, err := s.parsePredictRequest(r)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	var pred *estimate.Prediction
	switch mode {
	case queue.ModeAverage:
		pred, err = s.services.Estimate.PredictFromAverage(r.Context(), req)
	default:
		pred, err = s.services.Estimate.Predict(r.Context(), req)
	}
	if err != nil {
		s.logger.Error("prediction failed", "error", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, predictResponse{Prediction: pred, Minutes: pred.Minutes(), Mode: mode})
}

// parsePredictRequest reads the context either from explicit weekday and
// hour parameters or from "at" (default now) in the site time zone.
func (s *Server) parsePredictRequest(r *http.Request) (estimate.Request, queue.Mode, error) {
	q := r.URL.Query()

	at, err := queryTime(r, "at")
	if err != nil {
		return estimate.Request{}, "", err
	}
	if at.IsZero() {
		at = s.clock.Now()
	}
	c := estimate.ContextFor(at, s.services.Estimate.Location())

	if q.Get("weekday") != "" || q.Get("hour") != "" {
		weekday, err := queryInt(r, "weekday", int(c.Weekday))
		if err != nil {
			return estimate.Request{}, "", err
		}
		hour, err := queryInt(r, "hour", c.Hour)
		if err != nil {
			return estimate.Request{}, "", err
		}
		c.Weekday = time.Weekday(weekday)
		c.Hour = hour
	}

	scheduled, err := queryFloat(r, "scheduled_minutes", 0)
	if err != nil {
		return estimate.Request{}, "", err
	}
	tolerance, err := queryFloat(r, "tolerance_minutes", 0)
	if err != nil {
		return estimate.Request{}, "", err
	}
	c.Duration = minutes(scheduled)
	c.Tolerance = minutes(tolerance)

	exclude, err := queryBool(r, "exclude_outliers")
	if err != nil {
		return estimate.Request{}, "", err
	}

	mode := queue.Mode(q.Get("mode"))
	switch mode {
	case "":
		mode = queue.ModeSequential
	case queue.ModeSequential, queue.ModeAverage:
	default:
		return estimate.Request{}, "", fmt.Errorf("%w: unknown mode %q", occupancy.ErrInvalidInput, mode)
	}

	return estimate.Request{
		Context:         c,
		ExcludeOutliers: exclude,
		Source:          q.Get("source"),
	}, mode, nil
}

type openSessionsResponse struct {
	Sessions []occupancy.Session `json:"sessions"`
}

func (s *Server) handleOpenSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.services.Sessions.ListOpen(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		s.logger.Error("listing open sessions failed", "error", err)
		WriteDomainError(w, err)
		return
	}
	if sessions == nil {
		sessions = []occupancy.Session{}
	}
	WriteJSON(w, http.StatusOK, openSessionsResponse{Sessions: sessions})
}

type slotsRequest struct {
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	SlotMinutes     float64    `json:"slot_minutes"`
	Mode            queue.Mode `json:"mode"`
	ExcludeOutliers bool       `json:"exclude_outliers"`
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	var req slotsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	plan, err := s.services.Queue.Slots(r.Context(), queue.SlotRequest{
		Start:           req.Start,
		End:             req.End,
		SlotLength:      minutes(req.SlotMinutes),
		Mode:            req.Mode,
		ExcludeOutliers: req.ExcludeOutliers,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, plan)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	s.writeStats(w, "overview")(s.services.Aggregate.Overview(r.Context(), q))
}

func (s *Server) handleArrivalsByHour(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	s.writeStats(w, "arrivals by hour")(s.services.Aggregate.ArrivalsByHour(r.Context(), q))
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	binMinutes, err := queryInt(r, "bin_minutes", aggregate.DefaultBinSeconds/60)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	s.writeStats(w, "wait distribution")(s.services.Aggregate.WaitDistribution(r.Context(), q, binMinutes*60))
}

func (s *Server) handleLongest(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	n, err := queryInt(r, "n", aggregate.DefaultTopN)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	s.writeStats(w, "longest waits")(s.services.Aggregate.LongestWaits(r.Context(), q, n))
}

func (s *Server) handleArrivalsByWeekday(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	s.writeStats(w, "arrivals by weekday")(s.services.Aggregate.ArrivalsByWeekday(r.Context(), q))
}

func (s *Server) handleTimeOfDay(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	s.writeStats(w, "time of day")(s.services.Aggregate.TimeOfDay(r.Context(), q))
}

func (s *Server) handleWaitByWeekday(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	s.writeStats(w, "wait by weekday")(s.services.Aggregate.WaitByWeekday(r.Context(), q))
}

func (s *Server) handleWaitByHour(w http.ResponseWriter, r *http.Request) {
	q, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	s.writeStats(w, "wait by hour")(s.services.Aggregate.WaitByHour(r.Context(), q))
}

func (s *Server) statsQuery(w http.ResponseWriter, r *http.Request) (aggregate.Query, bool) {
	start, err := queryTime(r, "start")
	if err != nil {
		WriteDomainError(w, err)
		return aggregate.Query{}, false
	}
	end, err := queryTime(r, "end")
	if err != nil {
		WriteDomainError(w, err)
		return aggregate.Query{}, false
	}
	exclude, err := queryBool(r, "exclude_outliers")
	if err != nil {
		WriteDomainError(w, err)
		return aggregate.Query{}, false
	}
	return aggregate.Query{
		Window:          aggregate.Window{Start: start, End: end},
		Source:          r.URL.Query().Get("source"),
		ExcludeOutliers: exclude,
	}, true
}

func (s *Server) writeStats(w http.ResponseWriter, name string) func(any, error) {
	return func(result any, err error) {
		if err != nil {
			s.logger.Error("stats query failed", "stat", name, "error", err)
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", occupancy.ErrInvalidInput, name)
	}
	return t, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", occupancy.ErrInvalidInput, name)
	}
	return v, nil
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", occupancy.ErrInvalidInput, name)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", occupancy.ErrInvalidInput, name)
	}
	return v, nil
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
