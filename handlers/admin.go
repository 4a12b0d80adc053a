package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/SixtySecondsApp/onboarding-forms/middleware"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/notify"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
)

type AdminHandler struct {
	repo  models.Repository
	feed  *notify.Feed
	cache utils.RedisClient
}

// NewAdminHandler builds the handler for admin settings pages. feed and
// cache may be nil when Redis is not configured.
func NewAdminHandler(repo models.Repository, feed *notify.Feed, cache utils.RedisClient) *AdminHandler {
	return &AdminHandler{repo: repo, feed: feed, cache: cache}
}

type WebhookRequest struct {
	URL     string   `json:"url" binding:"required,url"`
	Secret  string   `json:"secret" binding:"max=256"`
	Events  []string `json:"events" binding:"dive,oneof=form_created form_updated form_completed form_deleted form_reminder"`
	Enabled *bool    `json:"enabled"`
}

type WebhookResponse struct {
	URL        string   `json:"url"`
	Events     []string `json:"events"`
	Enabled    bool     `json:"enabled"`
	HasSecret  bool     `json:"has_secret"`
	Configured bool     `json:"configured"`
}

func (h *AdminHandler) GetWebhookSettings(c *gin.Context) {
	setting, err := h.repo.GetWebhookSetting(c.Request.Context(), middleware.UserID(c))
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusOK, WebhookResponse{Events: []string{}})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWebhookResponse(setting))
}

func (h *AdminHandler) UpdateWebhookSettings(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner := middleware.UserID(c)
	setting, err := h.repo.GetWebhookSetting(c.Request.Context(), owner)
	if errors.Is(err, models.ErrNotFound) {
		setting = &models.WebhookSetting{CreatedBy: owner, Enabled: true}
	} else if err != nil {
		respondError(c, err)
		return
	}

	setting.URL = req.URL
	setting.Events = datatypes.JSONSlice[string](req.Events)
	if req.Secret != "" {
		setting.Secret = req.Secret
	}
	if req.Enabled != nil {
		setting.Enabled = *req.Enabled
	}

	if err := h.repo.SaveWebhookSetting(c.Request.Context(), setting); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWebhookResponse(setting))
}

func toWebhookResponse(s *models.WebhookSetting) WebhookResponse {
	events := []string(s.Events)
	if events == nil {
		events = []string{}
	}
	return WebhookResponse{
		URL:        s.URL,
		Events:     events,
		Enabled:    s.Enabled,
		HasSecret:  s.Secret != "",
		Configured: true,
	}
}

func (h *AdminHandler) ListNotifications(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusOK, gin.H{"notifications": []notify.Notification{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, err := h.feed.Recent(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// Health reports degraded when the cache is configured but unreachable.
func (h *AdminHandler) Health(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "details": gin.H{"redis": "disabled"}})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"details": gin.H{"redis": "unavailable"},
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "details": gin.H{"redis": "available"}})
}
