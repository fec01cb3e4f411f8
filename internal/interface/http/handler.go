package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/animuse/animuse/internal/domain/profile"
	"github.com/animuse/animuse/internal/domain/recommend"
)

const streamKeepAlive = 25 * time.Second

// NotificationFeed is the toast inbox read by the client.
type NotificationFeed interface {
	Drain(userID string) []recommend.Notification
	Subscribe(ctx context.Context, userID string) <-chan recommend.Notification
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	profiles        profile.Service
	recommendations recommend.Service
	notifications   NotificationFeed
	logger          *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(profiles profile.Service, recommendations recommend.Service, notifications NotificationFeed, logger *slog.Logger) *Handler {
	return &Handler{
		profiles:        profiles,
		recommendations: recommendations,
		notifications:   notifications,
		logger:          logger.With("component", "http.handler"),
	}
}

type dashboardEventRequest struct {
	View   string `json:"view"`
	Reason string `json:"reason"`
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetProfile returns the caller's preferences.
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	snap, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// UpdateProfile saves the preferences form. A saved profile may change what
// should be recommended, so it schedules a refresh check.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req profile.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	snap, err := h.profiles.Update(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	h.trigger(c.Request.Context(), userID, "profile-change", "")
	c.JSON(http.StatusOK, snap)
}

// RecordWatchlist stores a watchlist change used as a recommendation signal.
func (h *Handler) RecordWatchlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req profile.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	activity, err := h.profiles.RecordActivity(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	h.trigger(c.Request.Context(), userID, "watchlist-change", "")
	c.JSON(http.StatusCreated, activity)
}

// DashboardEvent reports a client lifecycle event (mount, focus, visibility).
func (h *Handler) DashboardEvent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dashboardEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "event"
	}
	if err := h.recommendations.Trigger(c.Request.Context(), userID, reason, recommend.View(strings.TrimSpace(req.View))); err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"scheduled": true})
}

// EndSession disposes the caller's coordinator.
func (h *Handler) EndSession(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.recommendations.Release(userID)
	c.Status(http.StatusNoContent)
}

// Recommendations returns the caller's categories, including cached ones.
func (h *Handler) Recommendations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	categories, err := h.recommendations.Categories(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// RefreshRecommendations runs a manual refresh.
func (h *Handler) RefreshRecommendations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.recommendations.Refresh(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Notifications drains queued toasts.
func (h *Handler) Notifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": h.notifications.Drain(userID)})
}

// NotificationStream pushes toasts using Server-Sent Events.
func (h *Handler) NotificationStream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	// the stream outlives the server-wide write timeout
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("could not clear stream write deadline", "user_id", userID, "error", err)
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := c.Request.Context()
	stream := h.notifications.Subscribe(ctx, userID)
	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case n, open := <-stream:
			if !open {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("marshal notification failed", "error", err)
				continue
			}
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(payload)
			c.Writer.Write([]byte("\n\n"))
			flusher.Flush()
		case <-keepAlive.C:
			c.Writer.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// trigger schedules a debounced check; failures only affect freshness.
func (h *Handler) trigger(ctx context.Context, userID, reason string, view recommend.View) {
	if err := h.recommendations.Trigger(ctx, userID, reason, view); err != nil {
		h.logger.Warn("refresh trigger failed", "user_id", userID, "reason", reason, "error", err)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
