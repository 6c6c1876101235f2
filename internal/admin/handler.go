package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/khadamat/khadamat/internal/marketplace"
	"github.com/khadamat/khadamat/internal/platform/httpx"
	"github.com/khadamat/khadamat/internal/shared"
)

// Handler exposes the admin endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validate  *validator.Validate
	loginPath string
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, loginPath string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator(), loginPath: loginPath}
}

// MountRoutes registers admin routes behind the bearer check.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireBearer(h.loginPath))
		r.Get("/plans", h.listPlans)
		r.Post("/advertisers/quote", h.quote)
		r.Post("/advertisers", h.createAdvertiser)
		r.Get("/advertisers", h.listAdvertisers)
		r.Get("/ad-requests", h.listAdRequests)
		r.Get("/subscriptions", h.listSubscriptions)
		r.Get("/invoices", h.listInvoices)
		r.Get("/refunds", h.listRefunds)
		r.Get("/statistics", h.statistics)
	})
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Plans(r.Context(), TokenFromContext(r.Context()))
	h.respondList(w, "admin list plans", list, err)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Quote(r.Context(), TokenFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, "admin quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) createAdvertiser(w http.ResponseWriter, r *http.Request) {
	var req CreateAdvertiserRequest
	if !h.decode(w, r, &req) {
		return
	}
	adv, quote, err := h.service.CreateAdvertiser(r.Context(), TokenFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, "admin create advertiser", err)
		return
	}
	h.logger.Info("advertiser created",
		slog.Int64("advertiser_id", adv.ID),
		slog.Float64("total", quote.Breakdown.TotalAmount),
	)
	httpx.JSON(w, http.StatusCreated, map[string]any{"advertiser": adv, "quote": quote})
}

func (h *Handler) listAdvertisers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.service.Advertisers(r.Context(), TokenFromContext(r.Context()), marketplace.AdvertiserFilter{
		Sector: strings.TrimSpace(q.Get("sector")),
		City:   strings.TrimSpace(q.Get("city")),
		Status: strings.TrimSpace(q.Get("status")),
	})
	h.respondList(w, "admin list advertisers", list, err)
}

func (h *Handler) listAdRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.AdRequests(r.Context(), TokenFromContext(r.Context()), listParams(r))
	h.respondList(w, "admin list ad requests", list, err)
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Subscriptions(r.Context(), TokenFromContext(r.Context()), listParams(r))
	h.respondList(w, "admin list subscriptions", list, err)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Invoices(r.Context(), TokenFromContext(r.Context()), listParams(r))
	h.respondList(w, "admin list invoices", list, err)
}

func (h *Handler) listRefunds(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Refunds(r.Context(), TokenFromContext(r.Context()), listParams(r))
	h.respondList(w, "admin list refunds", list, err)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context(), TokenFromContext(r.Context()))
	if err != nil {
		h.fail(w, "admin statistics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := httpx.DecodeJSON(r, dest); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := httpx.Validate(h.validate, dest); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) respondList(w http.ResponseWriter, op string, list any, err error) {
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrUnauthorized), errors.Is(err, httpx.ErrNotFound):
		h.logger.Debug(op, slog.Any("error", err))
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func listParams(r *http.Request) marketplace.ListParams {
	q := r.URL.Query()
	page := shared.ParsePage(q.Get("page"), q.Get("per_page"))
	return marketplace.ListParams{Page: page.Page, PerPage: page.PerPage, Status: strings.TrimSpace(q.Get("status"))}
}
