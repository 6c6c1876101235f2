package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/platform/httpx"
	"github.com/khadamat/khadamat/internal/shared"
)

const adRequestModule = "ad-requests"

// IdempotencyGuard rejects replayed ad requests.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Handler exposes the public directory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	idem     IdempotencyGuard
	validate *validator.Validate
}

// NewHandler builds Handler instance. idem may be nil.
func NewHandler(logger *slog.Logger, service *Service, idem IdempotencyGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, idem: idem, validate: httpx.NewValidator()}
}

// MountRoutes registers directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/advertisers", h.listAdvertisers)
	r.Get("/plans", h.listPlans)
	r.Post("/ad-requests", h.submitAdRequest)
}

func (h *Handler) listAdvertisers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.service.Advertisers(r.Context(), strings.TrimSpace(q.Get("sector")), strings.TrimSpace(q.Get("city")))
	if err != nil {
		h.fail(w, "list advertisers", err)
		return
	}
	if list == nil {
		list = []marketplace.Advertiser{}
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Plans(r.Context(), strings.TrimSpace(r.URL.Query().Get("sector")))
	if err != nil {
		h.fail(w, "list plans", err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) submitAdRequest(w http.ResponseWriter, r *http.Request) {
	var in marketplace.AdRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validate, in); err != nil {
		httpx.RespondError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), key, adRequestModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, httpx.ErrDuplicate)
				return
			}
			if errors.Is(err, shared.ErrIdempotencyKeyInvalid) {
				httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
				return
			}
			h.fail(w, "ad request idempotency", err)
			return
		}
	}

	rec, err := h.service.SubmitAdRequest(r.Context(), in)
	if err != nil {
		if key != "" && h.idem != nil {
			if delErr := h.idem.Delete(context.WithoutCancel(r.Context()), key, adRequestModule); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		h.fail(w, "submit ad request", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
