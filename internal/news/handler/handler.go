package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	newsservice "reliefhub/internal/news/service"
	"reliefhub/pkg/platform/httputil"
)

// Handler serves the disaster update feed.
type Handler struct {
	news *newsservice.Service
}

func New(news *newsservice.Service) *Handler {
	return &Handler{news: news}
}

// Register registers the news routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/news", h.handleLatest)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	articles, err := h.news.Latest(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, articles)
}
