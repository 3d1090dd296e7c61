package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"reliefhub/internal/platform/middleware"
	requestservice "reliefhub/internal/request/service"
	requeststore "reliefhub/internal/request/store/request"
	id "reliefhub/pkg/domain"
)

type staticValidator struct {
	userID id.UserID
}

func (v staticValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "valid-token" {
		return nil, errors.New("bad token")
	}
	return &middleware.JWTClaims{UserID: v.userID}, nil
}

type staticCounter struct{ count int }

func (c staticCounter) SupporterCount(context.Context, id.RequestID) (int, error) {
	return c.count, nil
}

type RequestHandlerSuite struct {
	suite.Suite
	owner  id.UserID
	logger *slog.Logger
	svc    *requestservice.Service
	router chi.Router
}

func (s *RequestHandlerSuite) SetupTest() {
	s.logger = slog.New(slog.DiscardHandler)
	store := requeststore.NewInMemory()
	s.svc = requestservice.New(store, requestservice.WithLogger(s.logger))
	s.owner = id.NewUserID()

	h := New(s.svc, staticCounter{count: 7}, staticValidator{userID: s.owner}, s.logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func TestRequestHandlerSuite(t *testing.T) {
	suite.Run(t, new(RequestHandlerSuite))
}

func (s *RequestHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RequestHandlerSuite) createRequest() string {
	rec := s.do(http.MethodPost, "/requests", "valid-token", map[string]any{
		"title":       "Community kitchen restock",
		"description": "rice, oil, canned goods",
		"goal":        15_000_00,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	return created.ID
}

func (s *RequestHandlerSuite) TestCreate() {
	s.Run("creates a request for the authenticated user", func() {
		rec := s.do(http.MethodPost, "/requests", "valid-token", map[string]any{
			"title": "Generator fuel",
			"goal":  5000_00,
		})
		s.Require().Equal(http.StatusCreated, rec.Code)

		var created struct {
			CreatorID string `json:"creator_id"`
			Status    string `json:"status"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
		s.Equal(s.owner.String(), created.CreatorID)
		s.Equal("active", created.Status)
	})

	s.Run("requires authentication", func() {
		rec := s.do(http.MethodPost, "/requests", "", map[string]any{"title": "x", "goal": 1})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("rejects a non-positive goal", func() {
		rec := s.do(http.MethodPost, "/requests", "valid-token", map[string]any{"title": "x", "goal": 0})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *RequestHandlerSuite) TestGet() {
	requestID := s.createRequest()

	s.Run("is public and includes display fields", func() {
		rec := s.do(http.MethodGet, "/requests/"+requestID, "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var view struct {
			PercentFunded int `json:"percent_funded"`
			Supporters    int `json:"supporters"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &view))
		s.Equal(0, view.PercentFunded)
		s.Equal(7, view.Supporters)
	})

	s.Run("unknown ID is 404", func() {
		rec := s.do(http.MethodGet, "/requests/"+id.NewRequestID().String(), "", nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *RequestHandlerSuite) TestUpdate() {
	requestID := s.createRequest()

	s.Run("edits allow-listed fields", func() {
		rec := s.do(http.MethodPatch, "/requests/"+requestID, "valid-token", map[string]any{
			"title":  "Community kitchen restock (extended)",
			"status": "urgent",
		})
		s.Require().Equal(http.StatusOK, rec.Code)

		var updated struct {
			Title  string `json:"title"`
			Status string `json:"status"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
		s.Equal("Community kitchen restock (extended)", updated.Title)
		s.Equal("urgent", updated.Status)
	})

	s.Run("rejects payloads naming monetary totals", func() {
		rec := s.do(http.MethodPatch, "/requests/"+requestID, "valid-token", map[string]any{
			"donation_received": 999_999_00,
		})
		s.Equal(http.StatusBadRequest, rec.Code)

		get := s.do(http.MethodGet, "/requests/"+requestID, "", nil)
		var view struct {
			DonationReceived int64 `json:"donation_received"`
		}
		s.Require().NoError(json.Unmarshal(get.Body.Bytes(), &view))
		s.Zero(view.DonationReceived)
	})

	s.Run("only the creator may edit", func() {
		// Same service, different authenticated user.
		stranger := New(s.svc, nil, staticValidator{userID: id.NewUserID()}, s.logger)
		router := chi.NewRouter()
		stranger.Register(router)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/requests/"+requestID, bytes.NewReader([]byte(`{"title":"hijack"}`)))
		req.Header.Set("Authorization", "Bearer valid-token")
		router.ServeHTTP(rec, req)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("requires authentication", func() {
		rec := s.do(http.MethodPatch, "/requests/"+requestID, "", map[string]any{"title": "x"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *RequestHandlerSuite) TestDelete() {
	requestID := s.createRequest()

	rec := s.do(http.MethodDelete, "/requests/"+requestID, "valid-token", nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)

	get := s.do(http.MethodGet, "/requests/"+requestID, "", nil)
	s.Equal(http.StatusNotFound, get.Code)
}

func (s *RequestHandlerSuite) TestList() {
	s.createRequest()
	s.createRequest()

	rec := s.do(http.MethodGet, "/requests", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var views []json.RawMessage
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &views))
	s.Len(views, 2)
}
