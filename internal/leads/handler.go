package leads

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/khadamat/khadamat/internal/platform/httpx"
	"github.com/khadamat/khadamat/internal/rotation"
)

// Handler exposes the calculator endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

// MountRoutes registers calculator routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rate-card", h.rateCard)
	r.Post("/estimate", h.estimate)
	r.Post("/leads", h.submitLead)
}

func (h *Handler) rateCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	httpx.JSON(w, http.StatusOK, h.service.RateCard())
}

func (h *Handler) estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validate, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	quote, err := h.service.Estimate(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) submitLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validate, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.SubmitLead(r.Context(), r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		if errors.Is(err, rotation.ErrNoAdvertisers) {
			httpx.Problem(w, http.StatusServiceUnavailable, "No Advertisers", "no advertiser is currently available to receive requests")
			return
		}
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrDuplicate) {
			h.logger.Error("submit lead", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}
