package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"walkmatch/walk"
)

type requestResponse struct {
	ID               string  `json:"id"`
	PetID            string  `json:"petId"`
	PetName          string  `json:"petName,omitempty"`
	PreferredAt      string  `json:"preferredAt"`
	Address          string  `json:"address"`
	Status           string  `json:"status"`
	SelectedWalkerID *string `json:"selectedWalkerId,omitempty"`
	CancelReason     *string `json:"cancelReason,omitempty"`
	ApplicationCount int     `json:"applicationCount"`
	CreatedAt        string  `json:"createdAt"`
}

func requestResponseOf(req walk.Request) requestResponse {
	return requestResponse{
		ID:               req.ID,
		PetID:            req.PetID,
		PreferredAt:      formatTime(req.PreferredAt),
		Address:          req.Address,
		Status:           string(req.Status),
		SelectedWalkerID: req.SelectedWalkerID,
		CancelReason:     req.CancelReason,
		CreatedAt:        formatTime(req.CreatedAt),
	}
}

func summaryResponseOf(s walk.RequestSummary) requestResponse {
	resp := requestResponseOf(s.Request)
	resp.PetName = s.PetName
	resp.ApplicationCount = s.ApplicationCount
	return resp
}

type createRequestRequest struct {
	PetID       string `json:"petId"`
	PreferredAt string `json:"preferredAt"`
	Address     string `json:"address"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	}

	var preferredAt time.Time
	if req.PreferredAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.PreferredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "無効な日時形式です")
			return
		}
		preferredAt = parsed
	}

	user := sessionFrom(r.Context())
	created, err := s.walkService.CreateRequest(r.Context(), walk.CreateRequestParams{
		OwnerID:     user.ID,
		PetID:       req.PetID,
		PreferredAt: preferredAt,
		Address:     req.Address,
	})
	switch {
	case errors.Is(err, walk.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "必須項目を入力してください")
		return
	case errors.Is(err, walk.ErrPetNotOwned):
		writeError(w, http.StatusNotFound, "ペットが見つかりません")
		return
	case err != nil:
		s.log.WithError(err).Error("create walk request")
		writeError(w, http.StatusInternalServerError, "リクエストの作成に失敗しました")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"request": requestResponseOf(created)})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user := sessionFrom(r.Context())
	summaries, err := s.walkService.ListByOwner(r.Context(), user.ID)
	if err != nil {
		s.log.WithError(err).Error("list owner requests")
		writeError(w, http.StatusInternalServerError, "リクエストの取得に失敗しました")
		return
	}

	items := make([]requestResponse, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, summaryResponseOf(summary))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleOpenRequests(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.walkService.ListOpen(r.Context())
	if err != nil {
		s.log.WithError(err).Error("list open requests")
		writeError(w, http.StatusInternalServerError, "リクエストの取得に失敗しました")
		return
	}

	items := make([]requestResponse, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, summaryResponseOf(summary))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type applicationResponse struct {
	ID            string  `json:"id"`
	RequestID     string  `json:"requestId"`
	WalkerID      string  `json:"walkerId"`
	WalkerName    string  `json:"walkerName,omitempty"`
	Qualification string  `json:"qualification,omitempty"`
	Area          string  `json:"area,omitempty"`
	Message       *string `json:"message,omitempty"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"createdAt"`
}

func applicationResponseOf(app walk.Application) applicationResponse {
	return applicationResponse{
		ID:        app.ID,
		RequestID: app.RequestID,
		WalkerID:  app.WalkerID,
		Message:   app.Message,
		Status:    string(app.Status),
		CreatedAt: formatTime(app.CreatedAt),
	}
}

type applyRequest struct {
	Message *string `json:"message"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if r.Body != nil {
		// The message body is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	user := sessionFrom(r.Context())
	app, err := s.walkService.Apply(r.Context(), walk.ApplyParams{
		RequestID: chi.URLParam(r, "id"),
		WalkerID:  user.ID,
		Message:   req.Message,
	})
	switch {
	case errors.Is(err, walk.ErrNotFound):
		writeError(w, http.StatusNotFound, "リクエストが見つかりません")
		return
	case errors.Is(err, walk.ErrRequestNotOpen):
		writeError(w, http.StatusConflict, "この募集は受付を終了しています")
		return
	case errors.Is(err, walk.ErrDuplicateApplication):
		writeError(w, http.StatusConflict, "既に応募しています")
		return
	case errors.Is(err, walk.ErrWalkerNotApproved):
		writeError(w, http.StatusForbidden, "承認済みのワーカーのみ応募できます")
		return
	case errors.Is(err, walk.ErrOwnRequest):
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	case err != nil:
		s.log.WithError(err).Error("apply to request")
		writeError(w, http.StatusInternalServerError, "応募に失敗しました")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"application": applicationResponseOf(app)})
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	user := sessionFrom(r.Context())
	entries, err := s.walkService.ListApplications(r.Context(), chi.URLParam(r, "id"), user.ID)
	switch {
	case errors.Is(err, walk.ErrRequestNotOwned):
		writeError(w, http.StatusNotFound, "リクエストが見つかりません")
		return
	case err != nil:
		s.log.WithError(err).Error("list applications")
		writeError(w, http.StatusInternalServerError, "応募情報の取得に失敗しました")
		return
	}

	items := make([]applicationResponse, 0, len(entries))
	for _, entry := range entries {
		resp := applicationResponseOf(entry.Application)
		resp.WalkerName = entry.WalkerName
		resp.Qualification = string(entry.Qualification)
		resp.Area = entry.Area
		items = append(items, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type walkerApplicationResponse struct {
	applicationResponse
	RequestStatus string `json:"requestStatus"`
	PreferredAt   string `json:"preferredAt"`
	Address       string `json:"address"`
	PetName       string `json:"petName"`
}

func (s *Server) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	user := sessionFrom(r.Context())
	apps, err := s.walkService.ListApplicationsForWalker(r.Context(), user.ID)
	if err != nil {
		s.log.WithError(err).Error("list walker applications")
		writeError(w, http.StatusInternalServerError, "応募情報の取得に失敗しました")
		return
	}

	items := make([]walkerApplicationResponse, 0, len(apps))
	for _, app := range apps {
		items = append(items, walkerApplicationResponse{
			applicationResponse: applicationResponseOf(app.Application),
			RequestStatus:       string(app.RequestStatus),
			PreferredAt:         formatTime(app.PreferredAt),
			Address:             app.Address,
			PetName:             app.PetName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type selectWalkerRequest struct {
	ApplicationID string `json:"applicationId"`
}

func (s *Server) handleSelectWalker(w http.ResponseWriter, r *http.Request) {
	var req selectWalkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "無効なリクエストです")
		return
	}

	user := sessionFrom(r.Context())
	result, err := s.walkService.SelectWalker(r.Context(), walk.SelectParams{
		RequestID:     chi.URLParam(r, "id"),
		OwnerID:       user.ID,
		ApplicationID: req.ApplicationID,
	})
	switch {
	case errors.Is(err, walk.ErrNotFound), errors.Is(err, walk.ErrRequestNotOwned):
		writeError(w, http.StatusNotFound, "リクエストが見つかりません")
		return
	case errors.Is(err, walk.ErrRequestNotOpen):
		writeError(w, http.StatusConflict, "この募集は受付を終了しています")
		return
	case errors.Is(err, walk.ErrApplicationNotFound):
		writeError(w, http.StatusNotFound, "応募が見つかりません")
		return
	case errors.Is(err, walk.ErrApplicationNotPending):
		writeError(w, http.StatusConflict, "この応募は既に処理されています")
		return
	case err != nil:
		s.log.WithError(err).Error("select walker")
		writeError(w, http.StatusInternalServerError, "選定処理に失敗しました")
		return
	}

	s.log.WithFields(logrus.Fields{
		"requestId":     result.Request.ID,
		"applicationId": result.Application.ID,
	}).Info("walker selected")

	writeJSON(w, http.StatusOK, map[string]any{
		"request":     requestResponseOf(result.Request),
		"application": applicationResponseOf(result.Application),
	})
}

func (s *Server) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	user := sessionFrom(r.Context())
	updated, err := s.walkService.Complete(r.Context(), walk.CompleteParams{
		RequestID: chi.URLParam(r, "id"),
		OwnerID:   user.ID,
	})
	if err != nil {
		s.writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": requestResponseOf(updated)})
}

type cancelRequestRequest struct {
	Reason *string `json:"reason"`
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	var req cancelRequestRequest
	if r.Body != nil {
		// The cancel reason is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	user := sessionFrom(r.Context())
	updated, err := s.walkService.Cancel(r.Context(), walk.CancelParams{
		RequestID: chi.URLParam(r, "id"),
		OwnerID:   user.ID,
		Reason:    req.Reason,
	})
	if err != nil {
		s.writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": requestResponseOf(updated)})
}

func (s *Server) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, walk.ErrNotFound), errors.Is(err, walk.ErrRequestNotOwned):
		writeError(w, http.StatusNotFound, "リクエストが見つかりません")
	case errors.Is(err, walk.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "この操作は現在のステータスでは実行できません")
	default:
		s.log.WithError(err).Error("update request status")
		writeError(w, http.StatusInternalServerError, "更新に失敗しました")
	}
}
