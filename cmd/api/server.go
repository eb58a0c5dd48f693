package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"walkmatch/auth"
	"walkmatch/pet"
	"walkmatch/walk"
	"walkmatch/walker"
)

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (auth.RegisterResult, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.User, error)
}

type walkerService interface {
	ListPending(ctx context.Context) ([]walker.Entry, error)
	ListApproved(ctx context.Context) ([]walker.Entry, error)
	Review(ctx context.Context, params walker.ReviewParams) (walker.Profile, error)
}

type petService interface {
	Create(ctx context.Context, params pet.CreateParams) (pet.Pet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]pet.Pet, error)
	Get(ctx context.Context, petID, ownerID string) (pet.Pet, error)
}

type walkService interface {
	CreateRequest(ctx context.Context, params walk.CreateRequestParams) (walk.Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]walk.RequestSummary, error)
	ListOpen(ctx context.Context) ([]walk.RequestSummary, error)
	Apply(ctx context.Context, params walk.ApplyParams) (walk.Application, error)
	ListApplications(ctx context.Context, requestID, ownerID string) ([]walk.ApplicationEntry, error)
	ListApplicationsForWalker(ctx context.Context, walkerID string) ([]walk.WalkerApplication, error)
	SelectWalker(ctx context.Context, params walk.SelectParams) (walk.SelectionResult, error)
	Complete(ctx context.Context, params walk.CompleteParams) (walk.Request, error)
	Cancel(ctx context.Context, params walk.CancelParams) (walk.Request, error)
}

// Server wires the HTTP surface to the domain services.
type Server struct {
	log           *logrus.Logger
	sessions      *auth.Sessions
	authService   authService
	walkerService walkerService
	petService    petService
	walkService   walkService
}

type ctxKey int

const ctxKeySession ctxKey = iota

func sessionFrom(ctx context.Context) *auth.SessionUser {
	user, _ := ctx.Value(ctxKeySession).(*auth.SessionUser)
	return user
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.withSession)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Get("/auth/me", s.handleMe)
			r.Get("/walkers", s.handleWalkers)
			r.Get("/pets", s.handleListPets)
			r.Get("/pets/{id}", s.handleGetPet)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleOwner))
				r.Post("/pets", s.handleCreatePet)
				r.Get("/requests", s.handleListRequests)
				r.Post("/requests", s.handleCreateRequest)
				r.Get("/requests/{id}/applications", s.handleListApplications)
				r.Post("/requests/{id}/select", s.handleSelectWalker)
				r.Post("/requests/{id}/complete", s.handleCompleteRequest)
				r.Post("/requests/{id}/cancel", s.handleCancelRequest)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleWalker))
				r.Get("/requests/open", s.handleOpenRequests)
				r.Post("/requests/{id}/applications", s.handleApply)
				r.Get("/applications", s.handleMyApplications)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleAdmin))
				r.Get("/admin/walkers", s.handleAdminWalkers)
				r.Post("/admin/walkers/approve", s.handleReviewWalker)
			})
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// withSession decodes the session cookie when present. Requests without a
// valid cookie proceed anonymously; gating happens in requireUser.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := s.sessions.Read(r); user != nil {
			r = r.WithContext(context.WithValue(r.Context(), ctxKeySession, user))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "認証が必要です")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := sessionFrom(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "認証が必要です")
				return
			}
			if user.Role != role {
				msg := "権限がありません"
				if role == auth.RoleAdmin {
					msg = "管理者権限が必要です"
				}
				writeError(w, http.StatusForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
