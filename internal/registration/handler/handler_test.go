package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"regdesk/internal/directory"
	"regdesk/internal/notify"
	"regdesk/internal/registration/service"
	"regdesk/internal/registration/store"
	"regdesk/pkg/platform/middleware/admin"
	"regdesk/pkg/platform/middleware/metadata"
	"regdesk/pkg/testutil"
)

type stubDirectory struct {
	collision    directory.Collision
	provisionErr error
}

func (s *stubDirectory) Exists(context.Context, string, string) directory.Collision {
	return s.collision
}

func (s *stubDirectory) Provision(context.Context, directory.Account) (string, error) {
	if s.provisionErr != nil {
		return "", s.provisionErr
	}
	return "one-time-credential!!", nil
}

type HandlerSuite struct {
	suite.Suite
	dir    *stubDirectory
	store  *store.MemoryStore
	router *chi.Mux
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.dir = &stubDirectory{}
	s.store = store.NewMemoryStore()

	notifier := notify.New(nil, nil, "", logger)
	svc := service.New(s.store, s.dir, notifier, logger)
	h := New(svc, logger)

	s.router = chi.NewRouter()
	s.router.Use(metadata.ClientMetadata)
	s.router.Group(h.RegisterPublic)
	s.router.Get("/healthz", h.Health)
	s.router.Route("/admin", func(r chi.Router) {
		r.Use(admin.Identity)
		h.RegisterAdmin(r)
	})
}

func (s *HandlerSuite) registerPayload() map[string]string {
	return map[string]string{
		"username":   "ada",
		"email":      "ada@example.com",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"reason":     "needs shell access",
	}
}

func (s *HandlerSuite) submit() int64 {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", s.registerPayload())
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code)

	resp := testutil.UnmarshalResponse[struct {
		ID int64 `json:"id"`
	}](s.T(), rr)
	return resp.ID
}

func (s *HandlerSuite) TestRegisterJSON() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", s.registerPayload())
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}](s.T(), rr)
	s.NotZero(resp.ID)
	s.Equal("pending", resp.Status)

	pending, err := s.store.ListPending(context.Background())
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("203.0.113.7", pending[0].SourceIP)
	s.Contains(pending[0].UserAgent, "Chrome")
}

func (s *HandlerSuite) TestRegisterForm() {
	form := url.Values{
		"username":   {"Ada"},
		"email":      {"Ada@Example.com"},
		"first_name": {"  Ada  "},
		"last_name":  {"Lovelace"},
		"reason":     {"needs shell access"},
	}
	req := testutil.NewFormRequest(s.T(), http.MethodPost, "/register", form)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	pending, err := s.store.ListPending(context.Background())
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("ada", pending[0].Username)
	s.Equal("ada@example.com", pending[0].Email)
	s.Equal("Ada", pending[0].FirstName)
}

func (s *HandlerSuite) TestRegisterInvalidUsername() {
	payload := s.registerPayload()
	payload["username"] = "Not Valid!"
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", payload)

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_failed")
}

func (s *HandlerSuite) TestRegisterMalformedJSON() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/register")
	req.Header.Set("Content-Type", "application/json")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *HandlerSuite) TestRegisterDirectoryConflict() {
	s.dir.collision = directory.CollisionUsername
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", s.registerPayload())

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *HandlerSuite) TestRegisterDuplicatePending() {
	s.submit()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", s.registerPayload())
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *HandlerSuite) TestHealthz() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalErrorResponse(s.T(), rr)
	s.Equal("healthy", resp["status"])
}

func (s *HandlerSuite) TestListPending() {
	s.submit()

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/requests"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Requests []RequestResponse `json:"requests"`
	}](s.T(), rr)
	s.Require().Len(resp.Requests, 1)
	s.Equal("ada", resp.Requests[0].Username)
}

func (s *HandlerSuite) TestApproveRecordsReviewer() {
	id := s.submit()

	req := testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+itoa(id)+"/approve")
	req.Header.Set(admin.HeaderRemoteUser, "root")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Status string        `json:"status"`
		Entry  AuditResponse `json:"entry"`
	}](s.T(), rr)
	s.Equal("approved", resp.Status)
	s.Equal("APPROVED", resp.Entry.Action)
	s.Equal("root", resp.Entry.PerformedBy)
}

func (s *HandlerSuite) TestApproveWithoutIdentityHeader() {
	id := s.submit()

	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+itoa(id)+"/approve"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Entry AuditResponse `json:"entry"`
	}](s.T(), rr)
	s.Equal("unknown", resp.Entry.PerformedBy)
}

func (s *HandlerSuite) TestApproveUnknownID() {
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/404/approve"))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestApproveMalformedID() {
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/abc/approve"))

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *HandlerSuite) TestApproveProvisionFailureReturnsBadGateway() {
	id := s.submit()
	s.dir.provisionErr = provisionCreateError()

	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+itoa(id)+"/approve"))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, "provision_create_failed")

	pending, err := s.store.ListPending(context.Background())
	s.Require().NoError(err)
	s.Len(pending, 1)
}

func (s *HandlerSuite) TestRejectWithReason() {
	id := s.submit()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/requests/"+itoa(id)+"/reject", map[string]string{"reason": "duplicate account"})
	req.Header.Set(admin.HeaderRemoteUser, "root")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Entry AuditResponse `json:"entry"`
	}](s.T(), rr)
	s.Equal("REJECTED", resp.Entry.Action)
	s.Equal("duplicate account", resp.Entry.RejectionReason)
}

func (s *HandlerSuite) TestRejectWithoutBodyUsesDefaultReason() {
	id := s.submit()

	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+itoa(id)+"/reject"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Entry AuditResponse `json:"entry"`
	}](s.T(), rr)
	s.Equal(service.DefaultRejectionReason, resp.Entry.RejectionReason)
}

func (s *HandlerSuite) TestAuditListAfterResolutions() {
	id := s.submit()
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodPost, "/admin/requests/"+itoa(id)+"/reject"))
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Entries []AuditResponse `json:"entries"`
	}](s.T(), rr)
	s.Require().Len(resp.Entries, 1)
	s.Equal("REJECTED", resp.Entries[0].Action)
}

func (s *HandlerSuite) TestAuditRejectsBadLimit() {
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit?limit=zero"))

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}
