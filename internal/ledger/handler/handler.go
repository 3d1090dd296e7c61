package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	ledgerservice "reliefhub/internal/ledger/service"
	"reliefhub/internal/payments"
	"reliefhub/internal/platform/middleware"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	"reliefhub/pkg/platform/httputil"
	"reliefhub/pkg/requestcontext"
)

// Handler exposes the donation ledger over HTTP: recording donations against
// a funding request and reading its history.
type Handler struct {
	logger       *slog.Logger
	ledger       *ledgerservice.Service
	verifier     payments.Verifier
	jwtValidator middleware.JWTValidator
	rateLimiter  func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithRateLimiter guards the donation endpoint with the given middleware.
func WithRateLimiter(limiter middleware.Limiter, limit int, window time.Duration, logger *slog.Logger) Option {
	return func(h *Handler) {
		h.rateLimiter = middleware.RateLimit(limiter, limit, window, logger)
	}
}

func New(ledger *ledgerservice.Service, verifier payments.Verifier, jwtValidator middleware.JWTValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		ledger:       ledger,
		verifier:     verifier,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the ledger routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/requests/{id}/donations", h.handleListDonations)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		if h.rateLimiter != nil {
			r.Use(h.rateLimiter)
		}
		r.Post("/requests/{id}/donations", h.handleRecordDonation)
	})
}

type donationRequest struct {
	Amount     int64  `json:"amount"`
	PaymentRef string `json:"payment_ref"`
}

func (h *Handler) handleRecordDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request ID"))
		return
	}

	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.verifier.Verify(ctx, req.PaymentRef, req.Amount); err != nil {
		h.logger.WarnContext(ctx, "payment verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"payment_ref", req.PaymentRef,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	agg, err := h.ledger.RecordDonation(ctx, requestID, requestcontext.UserID(ctx), req.Amount, req.PaymentRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, agg)
}

func (h *Handler) handleListDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request ID"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	donations, err := h.ledger.ListRecentDonations(ctx, requestID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donations)
}
