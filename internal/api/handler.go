package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"smarttrip/internal/core"
	"smarttrip/internal/metrics"
)

// Handler exposes the recommender over HTTP.
type Handler struct {
	service *core.Recommender
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewHandler(service *core.Recommender, m *metrics.Metrics, log zerolog.Logger) *Handler {
	return &Handler{service: service, metrics: m, log: log}
}

type recommendRequest struct {
	Lang        string   `json:"lang"`
	SessionID   string   `json:"session_id"`
	Activities  []string `json:"activities"`
	Activity    string   `json:"activity"`
	GroupType   string   `json:"group_type"`
	Budget      string   `json:"budget"`
	PeopleCount int      `json:"people_count"`
	HasCar      bool     `json:"has_car"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	City        string   `json:"city"`
	SearchMode  string   `json:"search_mode"`
	RadiusM     *int     `json:"radius_m"`
}

type recommendResponse struct {
	Status          string      `json:"status"`
	RequestID       string      `json:"request_id"`
	ModelVersion    string      `json:"model_version"`
	Origin          core.Origin `json:"origin"`
	RadiusM         int         `json:"radius_m"`
	SearchMode      string      `json:"search_mode"`
	City            *string     `json:"city"`
	Activities      []string    `json:"activities"`
	DataSource      string      `json:"data_source"`
	Recommendations interface{} `json:"recommendations"`
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupType == "" {
		req.GroupType = "friends"
	}
	if req.Budget == "" {
		req.Budget = "medium"
	}
	if req.PeopleCount == 0 {
		req.PeopleCount = 2
	}

	out, err := h.service.Recommend(r.Context(), core.RecommendInput{
		Lang:        req.Lang,
		SessionID:   req.SessionID,
		Activities:  req.Activities,
		Activity:    req.Activity,
		GroupType:   req.GroupType,
		Budget:      req.Budget,
		PeopleCount: req.PeopleCount,
		HasCar:      req.HasCar,
		Lat:         req.Lat,
		Lon:         req.Lon,
		City:        req.City,
		SearchMode:  req.SearchMode,
		RadiusM:     req.RadiusM,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("recommend failed")
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}

	h.metrics.ObserveRankingBatch(len(out.Recommendations))
	h.metrics.IncPlaceFetch(out.SearchMode, out.DataSource)

	var city *string
	if out.City != "" {
		city = &out.City
	}
	writeJSON(w, http.StatusOK, recommendResponse{
		Status:          "success",
		RequestID:       out.RequestID,
		ModelVersion:    out.ModelVersion,
		Origin:          out.Origin,
		RadiusM:         out.RadiusM,
		SearchMode:      out.SearchMode,
		City:            city,
		Activities:      out.Activities,
		DataSource:      out.DataSource,
		Recommendations: out.Recommendations,
	})
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
	PlaceID   string `json:"place_id"`
	Action    string `json:"action"`
}

func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequestID == "" || req.PlaceID == "" {
		writeError(w, http.StatusBadRequest, "request_id and place_id are required")
		return
	}

	trained, err := h.service.Feedback(r.Context(), core.FeedbackInput{
		SessionID: req.SessionID,
		RequestID: req.RequestID,
		PlaceID:   req.PlaceID,
		Action:    req.Action,
	})
	if err != nil {
		h.log.Error().Err(err).Str("request_id", req.RequestID).Msg("feedback failed")
		writeError(w, http.StatusInternalServerError, "feedback failed")
		return
	}

	h.metrics.IncFeedback(req.Action, trained)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "trained": trained})
}

type chatRequest struct {
	Lang      string         `json:"lang"`
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Current   core.ChatPrefs `json:"current"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	out, err := h.service.Chat(r.Context(), core.ChatInput{
		Lang:      req.Lang,
		SessionID: req.SessionID,
		Message:   req.Message,
		Current:   req.Current,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("chat failed")
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"reply":   out.Reply,
		"updates": out.Updates,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already sent; an encode failure here is terminal.
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
