package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authservice "reliefhub/internal/auth/service"
	"reliefhub/internal/platform/middleware"
	dErrors "reliefhub/pkg/domain-errors"
	"reliefhub/pkg/platform/httputil"
	"reliefhub/pkg/requestcontext"
)

// Handler handles account endpoints: register, login, current user.
type Handler struct {
	logger       *slog.Logger
	auth         *authservice.Service
	jwtValidator middleware.JWTValidator
	tokenTTL     time.Duration
	secureCookie bool
}

func New(auth *authservice.Service, jwtValidator middleware.JWTValidator, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		jwtValidator: jwtValidator,
		tokenTTL:     tokenTTL,
		secureCookie: true,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/auth/me", h.handleMe)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, err := h.auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, u.Public())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, token, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.tokenTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  u.Public(),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.auth.CurrentUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u.Public())
}
