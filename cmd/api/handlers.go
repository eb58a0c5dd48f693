package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"walkmatch/auth"
	"walkmatch/pet"
	"walkmatch/walker"
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"userType"`
}

func userResponseOf(u auth.User) userResponse {
	return userResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	}

	result, err := s.authService.Register(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "必須項目を入力してください")
		return
	case errors.Is(err, auth.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, "無効なユーザータイプです")
		return
	case errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "このメールアドレスは既に登録されています")
		return
	case err != nil:
		s.log.WithError(err).Error("register failed")
		writeError(w, http.StatusInternalServerError, "登録に失敗しました")
		return
	}

	if err := s.sessions.Issue(w, auth.SessionUserOf(result.User)); err != nil {
		s.log.WithError(err).Error("issue session")
		writeError(w, http.StatusInternalServerError, "登録に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userResponseOf(result.User)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	}

	user, err := s.authService.Login(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "必須項目を入力してください")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "メールアドレスまたはパスワードが正しくありません")
		return
	case err != nil:
		s.log.WithError(err).Error("login failed")
		writeError(w, http.StatusInternalServerError, "ログインに失敗しました")
		return
	}

	if err := s.sessions.Issue(w, auth.SessionUserOf(user)); err != nil {
		s.log.WithError(err).Error("issue session")
		writeError(w, http.StatusInternalServerError, "ログインに失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userResponseOf(user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleMe answers from the cookie alone, without a database round trip.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}})
}

type petResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Species   string   `json:"species"`
	Breed     *string  `json:"breed,omitempty"`
	Age       *int     `json:"age,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

func petResponseOf(p pet.Pet) petResponse {
	return petResponse{
		ID:        p.ID,
		Name:      p.Name,
		Species:   p.Species,
		Breed:     p.Breed,
		Age:       p.Age,
		Weight:    p.Weight,
		Notes:     p.Notes,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func (s *Server) handleListPets(w http.ResponseWriter, r *http.Request) {
	user := sessionFrom(r.Context())
	pets, err := s.petService.ListByOwner(r.Context(), user.ID)
	if err != nil {
		s.log.WithError(err).Error("list pets")
		writeError(w, http.StatusInternalServerError, "ペット情報の取得に失敗しました")
		return
	}

	items := make([]petResponse, 0, len(pets))
	for _, p := range pets {
		items = append(items, petResponseOf(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"pets": items})
}

func (s *Server) handleGetPet(w http.ResponseWriter, r *http.Request) {
	user := sessionFrom(r.Context())
	p, err := s.petService.Get(r.Context(), chi.URLParam(r, "id"), user.ID)
	switch {
	case errors.Is(err, pet.ErrNotFound):
		writeError(w, http.StatusNotFound, "ペットが見つかりません")
		return
	case err != nil:
		s.log.WithError(err).Error("get pet")
		writeError(w, http.StatusInternalServerError, "ペット情報の取得に失敗しました")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"pet": petResponseOf(p)})
}

type createPetRequest struct {
	Name    string   `json:"name"`
	Species string   `json:"species"`
	Breed   *string  `json:"breed"`
	Age     *int     `json:"age"`
	Weight  *float64 `json:"weight"`
	Notes   *string  `json:"notes"`
}

func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	var req createPetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	}

	user := sessionFrom(r.Context())
	created, err := s.petService.Create(r.Context(), pet.CreateParams{
		OwnerID: user.ID,
		Name:    req.Name,
		Species: req.Species,
		Breed:   req.Breed,
		Age:     req.Age,
		Weight:  req.Weight,
		Notes:   req.Notes,
	})
	switch {
	case errors.Is(err, pet.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "必須項目を入力してください")
		return
	case err != nil:
		s.log.WithError(err).Error("create pet")
		writeError(w, http.StatusInternalServerError, "ペット登録に失敗しました")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"pet": petResponseOf(created)})
}

type walkerEntryResponse struct {
	UserID          string  `json:"userId"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Qualification   string  `json:"qualification"`
	Area            string  `json:"area"`
	YearsExperience *int    `json:"yearsExperience,omitempty"`
	Introduction    *string `json:"introduction,omitempty"`
	ApprovalStatus  string  `json:"approvalStatus"`
	ApprovedAt      *string `json:"approvedAt,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

func walkerEntryResponseOf(e walker.Entry) walkerEntryResponse {
	return walkerEntryResponse{
		UserID:          e.UserID,
		Name:            e.Name,
		Email:           e.Email,
		Qualification:   string(e.Qualification),
		Area:            e.Area,
		YearsExperience: e.YearsExperience,
		Introduction:    e.Introduction,
		ApprovalStatus:  string(e.ApprovalStatus),
		ApprovedAt:      formatTimePtr(e.ApprovedAt),
		CreatedAt:       formatTime(e.CreatedAt),
	}
}

func (s *Server) handleWalkers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.walkerService.ListApproved(r.Context())
	if err != nil {
		s.log.WithError(err).Error("list approved walkers")
		writeError(w, http.StatusInternalServerError, "ワーカー情報の取得に失敗しました")
		return
	}

	items := make([]walkerEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, walkerEntryResponseOf(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAdminWalkers(w http.ResponseWriter, r *http.Request) {
	entries, err := s.walkerService.ListPending(r.Context())
	if err != nil {
		s.log.WithError(err).Error("list pending walkers")
		writeError(w, http.StatusInternalServerError, "ワーカー情報の取得に失敗しました")
		return
	}

	items := make([]walkerEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, walkerEntryResponseOf(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type reviewWalkerRequest struct {
	WalkerID string `json:"walkerId"`
	Status   string `json:"status"`
}

type profileResponse struct {
	UserID          string  `json:"userId"`
	Qualification   string  `json:"qualification"`
	Area            string  `json:"area"`
	YearsExperience *int    `json:"yearsExperience,omitempty"`
	Introduction    *string `json:"introduction,omitempty"`
	ApprovalStatus  string  `json:"approvalStatus"`
	ApprovedAt      *string `json:"approvedAt,omitempty"`
}

func (s *Server) handleReviewWalker(w http.ResponseWriter, r *http.Request) {
	var req reviewWalkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	}

	profile, err := s.walkerService.Review(r.Context(), walker.ReviewParams{
		WalkerUserID: req.WalkerID,
		Status:       walker.ApprovalStatus(req.Status),
	})
	switch {
	case errors.Is(err, walker.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	case errors.Is(err, walker.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "ワーカーが見つかりません")
		return
	case errors.Is(err, walker.ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, "この申請は審査済みです")
		return
	case err != nil:
		s.log.WithError(err).Error("review walker")
		writeError(w, http.StatusInternalServerError, "審査処理に失敗しました")
		return
	}

	s.log.WithFields(logrus.Fields{
		"walkerId": profile.UserID,
		"status":   profile.ApprovalStatus,
	}).Info("walker reviewed")

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"profile": profileResponse{
			UserID:          profile.UserID,
			Qualification:   string(profile.Qualification),
			Area:            profile.Area,
			YearsExperience: profile.YearsExperience,
			Introduction:    profile.Introduction,
			ApprovalStatus:  string(profile.ApprovalStatus),
			ApprovedAt:      formatTimePtr(profile.ApprovedAt),
		},
	})
}
