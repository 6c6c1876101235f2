package notices

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/khadamat/khadamat/internal/platform/httpx"
)

// ClientHeader scopes the hide flag to one browser.
const ClientHeader = "X-Client-ID"

// Handler exposes the notice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers notice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/notices", h.list)
	r.Put("/notices/hidden", h.setHidden)
}

type hiddenBody struct {
	Hidden *bool `json:"hidden"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hidden, items, err := h.service.Latest(r.Context(), scope(r), limit)
	if err != nil {
		h.logger.Error("list notices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, map[string]any{"hidden": hidden, "data": items})
}

func (h *Handler) setHidden(w http.ResponseWriter, r *http.Request) {
	var body hiddenBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if body.Hidden == nil {
		httpx.RespondError(w, httpx.FieldErrors{"hidden": "required"})
		return
	}
	if err := h.service.SetHidden(r.Context(), scope(r), *body.Hidden); err != nil {
		h.logger.Error("set notice flag", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"hidden": *body.Hidden})
}

func scope(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(ClientHeader))
	if len(id) > 64 {
		id = id[:64]
	}
	return id
}
