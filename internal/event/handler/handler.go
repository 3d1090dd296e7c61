package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	eventservice "reliefhub/internal/event/service"
	"reliefhub/internal/platform/middleware"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	"reliefhub/pkg/platform/httputil"
	"reliefhub/pkg/requestcontext"
)

// Handler handles volunteer event endpoints.
type Handler struct {
	logger       *slog.Logger
	events       *eventservice.Service
	jwtValidator middleware.JWTValidator
}

func New(events *eventservice.Service, jwtValidator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		events:       events,
		jwtValidator: jwtValidator,
	}
}

// Register registers the event routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.handleList)
	r.Get("/events/{id}", h.handleGet)
	r.Get("/events/{id}/comments", h.handleListComments)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/events", h.handleCreate)
		r.Delete("/events/{id}", h.handleDelete)
		r.Post("/events/{id}/volunteers", h.handleToggleVolunteer)
		r.Post("/events/{id}/comments", h.handleAddComment)
		r.Delete("/events/{id}/comments/{cid}", h.handleDeleteComment)
	})
}

type createRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	e, err := h.events.Create(ctx, requestcontext.UserID(ctx), eventservice.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.events.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, all)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event ID"))
		return
	}

	e, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event ID"))
		return
	}

	if err := h.events.Delete(ctx, eventID, requestcontext.UserID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToggleVolunteer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event ID"))
		return
	}

	volunteering, err := h.events.ToggleVolunteer(ctx, eventID, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"volunteering": volunteering})
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event ID"))
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.events.AddComment(ctx, eventID, requestcontext.UserID(ctx), req.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event ID"))
		return
	}

	comments, err := h.events.ListComments(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event ID"))
		return
	}
	commentID, err := id.ParseCommentID(chi.URLParam(r, "cid"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid comment ID"))
		return
	}

	if err := h.events.DeleteComment(ctx, eventID, commentID, requestcontext.UserID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
