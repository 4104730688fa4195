package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"blocknexus/internal/kyc"
	"blocknexus/internal/medium"
	"blocknexus/pkg/testutil"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	store  *kyc.Store
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store, s.router = newRouter(medium.NewMemory())
}

func newRouter(m medium.Medium, opts ...kyc.Option) (*kyc.Store, chi.Router) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]kyc.Option{
		kyc.WithLogger(logger),
		kyc.WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	store := kyc.New(m, opts...)

	h := New(store, logger)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return store, r
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	return testutil.Do(s.router, testutil.NewJSONRequest(s.T(), method, path, body))
}

func (s *HandlerSuite) TestSubmitKYC() {
	s.Run("creates a pending record and mirrors it on the user", func() {
		rr := s.do(http.MethodPost, "/kyc/0xA", map[string]any{"fullName": "Ada", "country": "UK"})
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

		body := testutil.DecodeBody[map[string]any](s.T(), rr)
		s.Equal("0xA", body["walletAddress"])
		s.Equal("pending", body["verificationStatus"])
		s.Equal("2026-10-16T09:30:00.000Z", body["submittedAt"])
		s.Equal("Ada", body["fullName"])

		user, ok := s.store.User(context.Background(), "0xA")
		s.Require().True(ok)
		s.Equal(kyc.KYCStatusPending, user.KYCStatus)
	})

	s.Run("accepts an empty body", func() {
		rr := s.do(http.MethodPost, "/kyc/0xEmpty", nil)
		s.Equal(http.StatusCreated, rr.Code)
		s.True(s.store.HasKYC(context.Background(), "0xEmpty"))
	})

	s.Run("rejects malformed JSON", func() {
		rr := s.do(http.MethodPost, "/kyc/0xB", "{not json")
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, "bad_request")
		s.False(s.store.HasKYC(context.Background(), "0xB"))
	})

	s.Run("decodes the wallet path segment exactly once", func() {
		cases := []struct {
			path   string
			wallet string
		}{
			{path: "/kyc/wallet%20one", wallet: "wallet one"},
			{path: "/kyc/a%2541", wallet: "a%41"},
			{path: "/kyc/100%25", wallet: "100%"},
			{path: "/kyc/a%2Fb", wallet: "a/b"},
		}
		for _, tc := range cases {
			rr := s.do(http.MethodPost, tc.path, map[string]any{})
			s.Require().Equal(http.StatusCreated, rr.Code, tc.path)
			s.True(s.store.HasKYC(context.Background(), tc.wallet), tc.path)

			got := s.do(http.MethodGet, tc.path, nil)
			s.Require().Equal(http.StatusOK, got.Code, tc.path)
			s.Equal(tc.wallet, testutil.DecodeBody[map[string]any](s.T(), got)["walletAddress"])
		}
	})
}

func (s *HandlerSuite) TestSubmitKYCStorageFull() {
	_, router := newRouter(medium.NewMemory(medium.WithQuota(16)))

	rr := testutil.Do(router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/kyc/0xA", map[string]any{"fullName": "Ada"}))

	body := testutil.AssertError(s.T(), rr, http.StatusInsufficientStorage, "storage_error")
	s.Equal("could not save verification data", body["error_description"])
}

func (s *HandlerSuite) TestGetKYC() {
	s.Run("missing record is 404", func() {
		rr := s.do(http.MethodGet, "/kyc/0xNone", nil)
		testutil.AssertError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("returns the stored record", func() {
		s.do(http.MethodPost, "/kyc/0xA", map[string]any{"age": 30})

		rr := s.do(http.MethodGet, "/kyc/0xA", nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		body := testutil.DecodeBody[map[string]any](s.T(), rr)
		s.Equal(json.Number("30"), body["age"])
	})

	s.Run("lists all records keyed by wallet", func() {
		rr := s.do(http.MethodGet, "/kyc", nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		body := testutil.DecodeBody[map[string]map[string]any](s.T(), rr)
		s.Contains(body, "0xA")
		s.Equal("0xA", body["0xA"]["walletAddress"])
	})
}

func (s *HandlerSuite) TestDeleteKYC() {
	s.do(http.MethodPost, "/kyc/0xA", map[string]any{})

	rr := s.do(http.MethodDelete, "/kyc/0xA", nil)
	s.Require().Equal(http.StatusNoContent, rr.Code)

	s.False(s.store.HasKYC(context.Background(), "0xA"))
	user, ok := s.store.User(context.Background(), "0xA")
	s.Require().True(ok)
	s.Equal(kyc.KYCStatusNone, user.KYCStatus)

	s.Run("deleting a missing record still succeeds", func() {
		rr := s.do(http.MethodDelete, "/kyc/0xGhost", nil)
		s.Equal(http.StatusNoContent, rr.Code)
	})
}

func (s *HandlerSuite) TestStats() {
	s.do(http.MethodPost, "/kyc/0xA", map[string]any{})
	s.do(http.MethodPost, "/kyc/0xB", map[string]any{})

	rr := s.do(http.MethodGet, "/kyc/stats", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	stats := testutil.DecodeBody[kyc.Stats](s.T(), rr)
	s.Equal(kyc.Stats{Total: 2, Pending: 2}, stats)
}

func (s *HandlerSuite) TestExport() {
	s.do(http.MethodPost, "/kyc/0xA", map[string]any{})

	rr := s.do(http.MethodGet, "/kyc/export", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal(`attachment; filename="blockNexus_KYC_backup_2026-10-16.json"`, rr.Header().Get("Content-Disposition"))
	s.Contains(rr.Body.String(), "\n  \"0xA\": {")

	s.Run("sink failure is a 500", func() {
		_, router := newRouter(medium.NewMemory(), kyc.WithArtifactSink(failingSink{}))
		rr := testutil.Do(router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/kyc/export", nil))
		testutil.AssertError(s.T(), rr, http.StatusInternalServerError, "export_failed")
	})
}

func (s *HandlerSuite) TestUsers() {
	s.Run("unknown user is 404", func() {
		rr := s.do(http.MethodGet, "/users/0xNone", nil)
		testutil.AssertError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("profile patch ignores the kyc mirror", func() {
		rr := s.do(http.MethodPatch, "/users/0xA", map[string]any{"username": "ada", "kycStatus": "approved"})
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

		body := testutil.DecodeBody[map[string]any](s.T(), rr)
		s.Equal("ada", body["username"])
		s.Equal("none", body["kycStatus"])
	})

	s.Run("lists users keyed by wallet", func() {
		rr := s.do(http.MethodGet, "/users", nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		body := testutil.DecodeBody[map[string]map[string]any](s.T(), rr)
		s.Equal("ada", body["0xA"]["username"])
	})
}

func (s *HandlerSuite) TestUpdateKYCStatus() {
	s.Run("sets the status", func() {
		rr := s.do(http.MethodPut, "/users/0xA/kyc-status", UpdateKYCStatusRequest{Status: "approved"})
		s.Require().Equal(http.StatusNoContent, rr.Code)

		user, ok := s.store.User(context.Background(), "0xA")
		s.Require().True(ok)
		s.Equal(kyc.KYCStatusApproved, user.KYCStatus)
		s.True(fixedNow.Equal(user.KYCSubmittedAt))
	})

	s.Run("rejects unknown statuses", func() {
		rr := s.do(http.MethodPut, "/users/0xA/kyc-status", UpdateKYCStatusRequest{Status: "verified"})
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestClearAll() {
	s.do(http.MethodPost, "/kyc/0xA", map[string]any{})

	rr := s.do(http.MethodDelete, "/admin/records", nil)
	s.Require().Equal(http.StatusNoContent, rr.Code)

	s.Empty(s.store.AllKYC(context.Background()))
	s.Empty(s.store.AllUsers(context.Background()))
}

type failingSink struct{}

func (failingSink) Save(context.Context, kyc.Artifact) error {
	return errors.New("disk unavailable")
}
