package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"walkmatch/auth"
	"walkmatch/pet"
	"walkmatch/walk"
	"walkmatch/walker"
)

type stubAuthService struct {
	registerResult auth.RegisterResult
	registerErr    error
	loginUser      auth.User
	loginErr       error
}

func (s *stubAuthService) Register(_ context.Context, _ auth.RegisterRequest) (auth.RegisterResult, error) {
	return s.registerResult, s.registerErr
}

func (s *stubAuthService) Login(_ context.Context, _ auth.LoginRequest) (auth.User, error) {
	return s.loginUser, s.loginErr
}

type stubWalkerService struct {
	pending  []walker.Entry
	approved []walker.Entry
	profile  walker.Profile
	err      error
}

func (s *stubWalkerService) ListPending(_ context.Context) ([]walker.Entry, error) {
	return s.pending, s.err
}

func (s *stubWalkerService) ListApproved(_ context.Context) ([]walker.Entry, error) {
	return s.approved, s.err
}

func (s *stubWalkerService) Review(_ context.Context, _ walker.ReviewParams) (walker.Profile, error) {
	return s.profile, s.err
}

type stubPetService struct {
	created pet.Pet
	pets    []pet.Pet
	err     error
}

func (s *stubPetService) Create(_ context.Context, _ pet.CreateParams) (pet.Pet, error) {
	return s.created, s.err
}

func (s *stubPetService) ListByOwner(_ context.Context, _ string) ([]pet.Pet, error) {
	return s.pets, s.err
}

func (s *stubPetService) Get(_ context.Context, _, _ string) (pet.Pet, error) {
	return s.created, s.err
}

type stubWalkService struct {
	request      walk.Request
	summaries    []walk.RequestSummary
	application  walk.Application
	entries      []walk.ApplicationEntry
	walkerApps   []walk.WalkerApplication
	selection    walk.SelectionResult
	err          error
	selectParams walk.SelectParams
	applyParams  walk.ApplyParams
}

func (s *stubWalkService) CreateRequest(_ context.Context, _ walk.CreateRequestParams) (walk.Request, error) {
	return s.request, s.err
}

func (s *stubWalkService) ListByOwner(_ context.Context, _ string) ([]walk.RequestSummary, error) {
	return s.summaries, s.err
}

func (s *stubWalkService) ListOpen(_ context.Context) ([]walk.RequestSummary, error) {
	return s.summaries, s.err
}

func (s *stubWalkService) Apply(_ context.Context, params walk.ApplyParams) (walk.Application, error) {
	s.applyParams = params
	return s.application, s.err
}

func (s *stubWalkService) ListApplications(_ context.Context, _, _ string) ([]walk.ApplicationEntry, error) {
	return s.entries, s.err
}

func (s *stubWalkService) ListApplicationsForWalker(_ context.Context, _ string) ([]walk.WalkerApplication, error) {
	return s.walkerApps, s.err
}

func (s *stubWalkService) SelectWalker(_ context.Context, params walk.SelectParams) (walk.SelectionResult, error) {
	s.selectParams = params
	return s.selection, s.err
}

func (s *stubWalkService) Complete(_ context.Context, params walk.CompleteParams) (walk.Request, error) {
	return s.request, s.err
}

func (s *stubWalkService) Cancel(_ context.Context, params walk.CancelParams) (walk.Request, error) {
	return s.request, s.err
}

func newTestServer() *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Server{
		log:           log,
		sessions:      auth.NewSessions("test-secret", false),
		authService:   &stubAuthService{},
		walkerService: &stubWalkerService{},
		petService:    &stubPetService{},
		walkService:   &stubWalkService{},
	}
}

func sessionCookie(t *testing.T, server *Server, user auth.SessionUser) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := server.sessions.Issue(rec, user); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error
}

func TestRegister_Success(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{
		registerResult: auth.RegisterResult{
			User: auth.User{ID: "u1", Email: "hanako@example.com", Name: "花子", Role: auth.RoleOwner},
		},
	}

	body := strings.NewReader(`{"email":"hanako@example.com","password":"password123","name":"花子","userType":"owner"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		User map[string]any `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.User["id"] != "u1" || payload.User["userType"] != "owner" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if _, ok := payload.User["role"]; ok {
		t.Fatalf("user serialized with a role key: %+v", payload.User)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.SessionCookieName || cookies[0].Value == "" {
		t.Fatalf("expected a session cookie, got %+v", cookies)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{registerErr: auth.ErrDuplicateEmail}

	body := strings.NewReader(`{"email":"taken@example.com","password":"password123","name":"x","userType":"owner"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "このメールアドレスは既に登録されています" {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{loginErr: auth.ErrInvalidCredentials}

	body := strings.NewReader(`{"email":"x@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expired cookie, got %+v", cookies)
	}
}

func TestMe_WithoutSession(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "認証が必要です" {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestMe_WithSession(t *testing.T) {
	server := newTestServer()
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "u1", Email: "x@example.com", Name: "太郎", Role: auth.RoleWalker})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		User userResponse `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.User.ID != "u1" || payload.User.Role != "walker" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestListPets_AnySessionRole(t *testing.T) {
	server := newTestServer()
	server.petService = &stubPetService{
		pets: []pet.Pet{{ID: "p1", OwnerID: "w1", Name: "ポチ", Species: "dog"}},
	}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "w1", Role: auth.RoleWalker})

	req := httptest.NewRequest(http.MethodGet, "/api/pets", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a walker session, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Pets []petResponse `json:"pets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Pets) != 1 || payload.Pets[0].ID != "p1" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"items"`) {
		t.Fatalf("list keyed by items instead of pets: %s", rec.Body.String())
	}
}

func TestGetPet_NotFound(t *testing.T) {
	server := newTestServer()
	server.petService = &stubPetService{err: pet.ErrNotFound}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "o1", Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodGet, "/api/pets/p404", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "ペットが見つかりません" {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestCreatePet_RequiresOwnerRole(t *testing.T) {
	server := newTestServer()
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "w1", Role: auth.RoleWalker})

	req := httptest.NewRequest(http.MethodPost, "/api/pets", strings.NewReader(`{"name":"ポチ","species":"dog"}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "権限がありません" {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestCreatePet_Success(t *testing.T) {
	server := newTestServer()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	server.petService = &stubPetService{
		created: pet.Pet{ID: "p1", OwnerID: "o1", Name: "ポチ", Species: "dog", CreatedAt: now},
	}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "o1", Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodPost, "/api/pets", strings.NewReader(`{"name":"ポチ","species":"dog"}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Pet petResponse `json:"pet"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Pet.ID != "p1" || payload.Pet.CreatedAt != now.Format(time.RFC3339) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAdminWalkers_ForbiddenForOwner(t *testing.T) {
	server := newTestServer()
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "o1", Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/walkers", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "管理者権限が必要です" {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestReviewWalker_AlreadyReviewed(t *testing.T) {
	server := newTestServer()
	server.walkerService = &stubWalkerService{err: walker.ErrAlreadyReviewed}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "a1", Role: auth.RoleAdmin})

	body := strings.NewReader(`{"walkerId":"w1","status":"approved"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/walkers/approve", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSelectWalker_PassesURLParam(t *testing.T) {
	server := newTestServer()
	stub := &stubWalkService{
		selection: walk.SelectionResult{
			Request:     walk.Request{ID: "r1", Status: walk.StatusConfirmed},
			Application: walk.Application{ID: "a1", RequestID: "r1", WalkerID: "w1", Status: walk.ApplicationSelected},
		},
	}
	server.walkService = stub
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "o1", Role: auth.RoleOwner})

	body := strings.NewReader(`{"applicationId":"a1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/requests/r1/select", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.selectParams.RequestID != "r1" || stub.selectParams.OwnerID != "o1" || stub.selectParams.ApplicationID != "a1" {
		t.Fatalf("unexpected select params: %+v", stub.selectParams)
	}
}

func TestApply_Duplicate(t *testing.T) {
	server := newTestServer()
	server.walkService = &stubWalkService{err: walk.ErrDuplicateApplication}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "w1", Role: auth.RoleWalker})

	req := httptest.NewRequest(http.MethodPost, "/api/requests/r1/applications", strings.NewReader(`{}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "既に応募しています" {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestApply_UnapprovedWalker(t *testing.T) {
	server := newTestServer()
	server.walkService = &stubWalkService{err: walk.ErrWalkerNotApproved}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "w1", Role: auth.RoleWalker})

	req := httptest.NewRequest(http.MethodPost, "/api/requests/r1/applications", strings.NewReader(`{"message":"よろしくお願いします"}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCreateRequest_BadTimestamp(t *testing.T) {
	server := newTestServer()
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "o1", Role: auth.RoleOwner})

	body := strings.NewReader(`{"petId":"p1","preferredAt":"tomorrow","address":"東京都"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/requests", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCompleteRequest_InvalidTransition(t *testing.T) {
	server := newTestServer()
	server.walkService = &stubWalkService{err: walk.ErrInvalidTransition}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "o1", Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodPost, "/api/requests/r1/complete", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestOpenRequests_UnexpectedError(t *testing.T) {
	server := newTestServer()
	server.walkService = &stubWalkService{err: errors.New("boom")}
	cookie := sessionCookie(t, server, auth.SessionUser{ID: "w1", Role: auth.RoleWalker})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/open", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
