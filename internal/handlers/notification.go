package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/authz"
	"github.com/craftplan/craftplan-api/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

func (h *NotificationHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.service.ListRecent(tc.TenantID, limit)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	tc, ok := authz.FromRequest(r)
	if !ok {
		apperr.Write(w, h.logger, apperr.NotAuthenticated(""))
		return
	}
	if err := authz.EnsureWritable(tc); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}

	n, err := h.service.MarkRead(tc.TenantID, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apperr.Write(w, h.logger, apperr.NotFound("notification not found"))
			return
		}
		apperr.Write(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
