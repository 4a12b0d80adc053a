package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SixtySecondsApp/onboarding-forms/dashboard"
	"github.com/SixtySecondsApp/onboarding-forms/logger"
	"github.com/SixtySecondsApp/onboarding-forms/middleware"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/notify"
)

type FormHandler struct {
	svc       *dashboard.Service
	publicURL string
}

func NewFormHandler(svc *dashboard.Service, publicURL string) *FormHandler {
	return &FormHandler{svc: svc, publicURL: publicURL}
}

type CreateFormRequest struct {
	ClientName  string `json:"client_name" binding:"required,min=2,max=200"`
	ClientEmail string `json:"client_email" binding:"required,email"`
}

type PasswordRequest struct {
	Password string `json:"password" binding:"max=128"`
}

type SectionRequest struct {
	Section string `json:"section" binding:"required"`
}

type FormResponse struct {
	ID           string            `json:"id"`
	ClientName   string            `json:"client_name"`
	ClientEmail  string            `json:"client_email"`
	Progress     int               `json:"progress"`
	Status       models.FormStatus `json:"status"`
	Data         models.FormData   `json:"data"`
	Slug         string            `json:"slug"`
	Link         string            `json:"link"`
	HasPassword  bool              `json:"has_password"`
	IsDisabled   bool              `json:"is_disabled"`
	LastReminder *time.Time        `json:"last_reminder"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (h *FormHandler) toFormResponse(f *models.Form) FormResponse {
	return FormResponse{
		ID:           f.ID,
		ClientName:   f.ClientName,
		ClientEmail:  f.ClientEmail,
		Progress:     f.Progress,
		Status:       f.Status,
		Data:         f.Data.Data(),
		Slug:         f.Slug,
		Link:         notify.OnboardingLink(h.publicURL, f.Slug),
		HasPassword:  f.HasPassword(),
		IsDisabled:   f.IsDisabled,
		LastReminder: f.LastReminder,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func (h *FormHandler) ListForms(c *gin.Context) {
	q := dashboard.Query{
		Search: c.Query("search"),
		Status: models.FormStatus(c.Query("status")),
		SortBy: dashboard.SortField(c.DefaultQuery("sort", string(dashboard.SortCreatedAt))),
		Asc:    strings.EqualFold(c.Query("order"), "asc"),
	}
	if q.Status != "" && !q.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	forms, err := h.svc.List(c.Request.Context(), middleware.UserID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]FormResponse, len(forms))
	for i := range forms {
		out[i] = h.toFormResponse(&forms[i])
	}
	c.JSON(http.StatusOK, gin.H{"forms": out, "summary": dashboard.Summarize(forms)})
}

func (h *FormHandler) CreateForm(c *gin.Context) {
	var req CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req.ClientName, req.ClientEmail)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.toFormResponse(form))
}

func (h *FormHandler) GetForm(c *gin.Context) {
	form, err := h.svc.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toFormResponse(form))
}

func (h *FormHandler) DeleteForm(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FormHandler) ToggleDisabled(c *gin.Context) {
	form, err := h.svc.ToggleDisabled(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toFormResponse(form))
}

func (h *FormHandler) SetPassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := h.svc.SetPassword(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toFormResponse(form))
}

// SendReminder answers with ok/not-ok only.
func (h *FormHandler) SendReminder(c *gin.Context) {
	form, err := h.svc.SendReminder(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false})
		case errors.Is(err, dashboard.ErrAlreadyCompleted):
			c.JSON(http.StatusConflict, gin.H{"ok": false})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		}
		return
	}

	logger.FromGin(c).Info("reminder requested", zap.String("form_id", form.ID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *FormHandler) CreateSection(c *gin.Context) {
	var req SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := h.svc.CreateSection(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Section)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       section.ID,
		"form_id":  section.FormID,
		"section":  section.Section,
		"share_id": section.ShareID,
		"link":     h.publicURL + "/sections/" + section.ShareID,
	})
}

// SearchForms prefers the search index and falls back to filtering the
// owner's forms when search is not configured.
func (h *FormHandler) SearchForms(c *gin.Context) {
	text := strings.TrimSpace(c.Query("q"))
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	owner := middleware.UserID(c)
	hits, err := h.svc.Search(c.Request.Context(), owner, text)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"results": hits})
		return
	}
	if !errors.Is(err, dashboard.ErrSearchUnavailable) {
		respondError(c, err)
		return
	}

	forms, err := h.svc.List(c.Request.Context(), owner, dashboard.Query{Search: text})
	if err != nil {
		respondError(c, err)
		return
	}
	results := make([]dashboard.SearchHit, len(forms))
	for i := range forms {
		results[i] = dashboard.Document(&forms[i])
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
