package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streakworks/tally/internal/scoring"
	"github.com/streakworks/tally/internal/store"
	"github.com/streakworks/tally/internal/types"
	"github.com/streakworks/tally/internal/validation"
)

// Handler implements the API handlers
type Handler struct {
	store   store.Store
	apiKey  string
	version string
}

// NewHandler creates a new Handler with store.Store interface
func NewHandler(s store.Store, apiKey, version string) *Handler {
	return &Handler{
		store:   s,
		apiKey:  apiKey,
		version: version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := types.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		TemplateCount: stats.TemplateCount,
		CheckinCount:  stats.CheckinCount,
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListTemplates handles GET /api/v1/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		slog.Error("list templates failed", "error", err)
		MapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// GetTemplate handles GET /api/v1/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// CreateLeagueTask handles POST /api/v1/leagues/{leagueID}/tasks. The
// template, overrides and difficulty preset are resolved once here so a
// misconfigured task is rejected at creation time, not at first check-in.
func (h *Handler) CreateLeagueTask(w http.ResponseWriter, r *http.Request) {
	leagueID := chi.URLParam(r, "leagueID")

	var req types.CreateLeagueTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("template_id", req.TemplateID))
	if req.Difficulty != nil {
		c.Add(validation.ValidateEnum("difficulty", *req.Difficulty, types.DifficultyLevels))
	}
	if req.Overrides.TargetTime != nil {
		c.Add(validation.ValidateClock("overrides.target_time", *req.Overrides.TargetTime))
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), req.TemplateID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	eff, err := scoring.EffectiveTemplate(*tpl, req.Difficulty)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}
	if _, err := scoring.Resolve(eff, &req.Overrides, nil); err != nil {
		MapDomainError(w, r, err)
		return
	}

	created, err := h.store.CreateLeagueTask(r.Context(), types.LeagueTask{
		LeagueID:   leagueID,
		TemplateID: req.TemplateID,
		Overrides:  req.Overrides,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		slog.Error("create league task failed", "error", err, "league_id", leagueID)
		MapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpsertCheckin handles PUT /api/v1/checkins. The check-in is stored
// last-write-wins per (user, task, day), scored, and the scoring event
// recorded; the stored row and the score come back together.
func (h *Handler) UpsertCheckin(w http.ResponseWriter, r *http.Request) {
	var req types.CheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("user_id", req.UserID))
	c.Add(validation.ValidateRequired("league_task_id", req.LeagueTaskID))
	c.Add(validation.ValidateRequired("day", req.Day))
	if req.Day != "" {
		c.Add(validation.ValidateDay("day", req.Day))
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	lt, err := h.store.GetLeagueTask(r.Context(), req.LeagueTaskID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), lt.TemplateID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	eff, err := scoring.EffectiveTemplate(*tpl, lt.Difficulty)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	result, err := scoring.Evaluate(scoring.Input{
		Template:  eff,
		Overrides: &lt.Overrides,
		Value:     req.Value,
		Metadata:  req.Metadata,
	})
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	checkin, err := h.store.UpsertCheckin(r.Context(), types.Checkin{
		UserID:       req.UserID,
		LeagueTaskID: req.LeagueTaskID,
		Day:          req.Day,
		Value:        req.Value,
		Metadata:     req.Metadata,
	})
	if err != nil {
		slog.Error("checkin upsert failed", "error", err, "user_id", req.UserID)
		MapDomainError(w, r, err)
		return
	}

	event, err := h.store.RecordScoringEvent(r.Context(), types.ScoringEvent{
		CheckinID: checkin.ID,
		Result:    *result,
	})
	if err != nil {
		slog.Error("record scoring event failed", "error", err, "checkin_id", checkin.ID)
		MapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.CheckinResponse{
		Checkin: *checkin,
		Result:  *result,
		EventID: event.ID,
	})
}

// Preview handles POST /api/v1/score/preview: a stateless scoring pass with
// nothing stored. This backs the "what would this be worth" display.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req types.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("template_id", req.TemplateID))
	if req.Difficulty != nil {
		c.Add(validation.ValidateEnum("difficulty", *req.Difficulty, types.DifficultyLevels))
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), req.TemplateID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	eff, err := scoring.EffectiveTemplate(*tpl, req.Difficulty)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	result, err := scoring.Evaluate(scoring.Input{
		Template:  eff,
		Overrides: req.Overrides,
		Value:     req.Value,
		Metadata:  req.Metadata,
	})
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ApplyPowerUp handles POST /api/v1/powerups/{id}/apply. The check-in is
// re-scored with the power-up, then the power-up is consumed atomically;
// losing the consume race leaves no event behind.
func (h *Handler) ApplyPowerUp(w http.ResponseWriter, r *http.Request) {
	powerUpID := chi.URLParam(r, "id")

	var req types.ApplyPowerUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if err := validation.ValidateRequired("checkin_id", req.CheckinID); err != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*err})
		return
	}

	powerUp, err := h.store.GetPowerUp(r.Context(), powerUpID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	checkin, err := h.store.GetCheckin(r.Context(), req.CheckinID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}
	lt, err := h.store.GetLeagueTask(r.Context(), checkin.LeagueTaskID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), lt.TemplateID)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	eff, err := scoring.EffectiveTemplate(*tpl, lt.Difficulty)
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	result, err := scoring.Evaluate(scoring.Input{
		Template:  eff,
		Overrides: &lt.Overrides,
		Value:     checkin.Value,
		Metadata:  checkin.Metadata,
		PowerUp:   powerUp,
	})
	if err != nil {
		MapDomainError(w, r, err)
		return
	}

	// An unverified check-in earns nothing, so spending a power-up on it
	// would only waste the consumable. Refuse before the consume.
	if !result.Verified {
		WriteProblem(w, r, http.StatusConflict, "Check-in is unverified; power-up was not consumed")
		return
	}

	// Consume after the score is known good. The CAS update is what makes a
	// double spend impossible; the loser gets a conflict and no event.
	if err := h.store.ConsumePowerUp(r.Context(), powerUpID, checkin.ID); err != nil {
		MapDomainError(w, r, err)
		return
	}

	event, err := h.store.RecordScoringEvent(r.Context(), types.ScoringEvent{
		CheckinID: checkin.ID,
		Result:    *result,
		PowerUpID: powerUpID,
	})
	if err != nil {
		slog.Error("record scoring event failed", "error", err, "checkin_id", checkin.ID)
		MapDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.CheckinResponse{
		Checkin: *checkin,
		Result:  *result,
		EventID: event.ID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
