package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reliefhub/internal/platform/middleware"
	"reliefhub/internal/request/models"
	requestservice "reliefhub/internal/request/service"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	"reliefhub/pkg/platform/httputil"
	"reliefhub/pkg/requestcontext"
)

// SupporterCounter reports how many distinct donors back a request. The
// ledger service satisfies this.
type SupporterCounter interface {
	SupporterCount(ctx context.Context, requestID id.RequestID) (int, error)
}

// Handler handles funding request CRUD endpoints.
type Handler struct {
	logger       *slog.Logger
	requests     *requestservice.Service
	supporters   SupporterCounter
	jwtValidator middleware.JWTValidator
}

func New(requests *requestservice.Service, supporters SupporterCounter, jwtValidator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		requests:     requests,
		supporters:   supporters,
		jwtValidator: jwtValidator,
	}
}

// Register registers the funding request routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/requests", h.handleList)
	r.Get("/requests/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/requests", h.handleCreate)
		r.Patch("/requests/{id}", h.handleUpdate)
		r.Delete("/requests/{id}", h.handleDelete)
	})
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Goal        int64  `json:"goal"`
	ImageURL    string `json:"image_url"`
}

// requestView decorates the aggregate with display fields.
type requestView struct {
	*models.FundingRequest
	PercentFunded int `json:"percent_funded"`
	Supporters    int `json:"supporters,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.requests.Create(ctx, requestcontext.UserID(ctx), requestservice.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Goal:        req.Goal,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, requestView{FundingRequest: created, PercentFunded: created.PercentFunded()})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.requests.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	views := make([]requestView, 0, len(all))
	for _, fr := range all {
		views = append(views, requestView{FundingRequest: fr, PercentFunded: fr.PercentFunded()})
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request ID"))
		return
	}

	fr, err := h.requests.Get(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view := requestView{FundingRequest: fr, PercentFunded: fr.PercentFunded()}
	if h.supporters != nil {
		count, err := h.supporters.SupporterCount(ctx, requestID)
		if err != nil {
			h.logger.WarnContext(ctx, "supporter count failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		} else {
			view.Supporters = count
		}
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request ID"))
		return
	}

	// Strict decoding: a payload naming donation_received or any other
	// non-editable field is rejected instead of silently ignored.
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var upd models.UpdateRequest
	if err := dec.Decode(&upd); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body: only title, description, goal and status are editable"))
		return
	}

	fr, err := h.requests.Update(ctx, requestID, requestcontext.UserID(ctx), upd)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requestView{FundingRequest: fr, PercentFunded: fr.PercentFunded()})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request ID"))
		return
	}

	if err := h.requests.Delete(ctx, requestID, requestcontext.UserID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
