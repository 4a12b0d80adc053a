package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/store"
	"github.com/SixtySecondsApp/onboarding-forms/validation"
	"github.com/SixtySecondsApp/onboarding-forms/wizard"
)

const PasswordHeader = "X-Form-Password"

// OnboardingHandler serves the client-facing wizard. Clients are not
// authenticated; forms may be gated by a password.
type OnboardingHandler struct {
	store *store.Store
}

func NewOnboardingHandler(st *store.Store) *OnboardingHandler {
	return &OnboardingHandler{store: st}
}

type StepRequest struct {
	Fields map[string]string `json:"fields"`
}

// ValidateRequest carries the fields of a change/blur event. Step, when
// set, is an index, id or slug and scopes the check to that step.
type ValidateRequest struct {
	Step   string            `json:"step"`
	Fields map[string]string `json:"fields"`
}

type BackRequest struct {
	CurrentStep int `json:"current_step" binding:"min=0"`
}

type WizardResponse struct {
	FormID      string            `json:"form_id"`
	ClientName  string            `json:"client_name"`
	Status      models.FormStatus `json:"status"`
	Progress    int               `json:"progress"`
	CurrentStep int               `json:"current_step"`
	Done        bool              `json:"done"`
	Steps       []wizard.Step     `json:"steps"`
	Data        models.FormData   `json:"data"`
}

func wizardResponse(form *models.Form, c *wizard.Controller) WizardResponse {
	return WizardResponse{
		FormID:      form.ID,
		ClientName:  form.ClientName,
		Status:      c.Status(),
		Progress:    c.Progress(),
		CurrentStep: c.CurrentStep(),
		Done:        c.Done(),
		Steps:       c.Steps(),
		Data:        c.Data(),
	}
}

// load resolves the form reference and applies the access gate.
func (h *OnboardingHandler) load(c *gin.Context) (*models.Form, bool) {
	form, err := h.store.GetFormByRef(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if err := store.Authorize(form, c.GetHeader(PasswordHeader)); err != nil {
		respondError(c, err)
		return nil, false
	}
	return form, true
}

// GetWizard returns the wizard state. ?section=<slug> mirrors the
// #section-slug deep link of the onboarding page.
func (h *OnboardingHandler) GetWizard(c *gin.Context) {
	form, ok := h.load(c)
	if !ok {
		return
	}

	ctl := wizard.New(form.ID, form.Data.Data(), form.Status, h.store)
	if ref := c.Query("section"); ref != "" {
		idx, found := wizard.StepIndex(ref)
		if !found {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown section"})
			return
		}
		_ = ctl.GoTo(idx)
	}

	c.JSON(http.StatusOK, wizardResponse(form, ctl))
}

func (h *OnboardingHandler) SubmitStep(c *gin.Context) {
	form, ok := h.load(c)
	if !ok {
		return
	}

	idx, ok := parseStep(c.Param("step"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown step"})
		return
	}

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctl := wizard.New(form.ID, form.Data.Data(), form.Status, h.store)
	_ = ctl.GoTo(idx)
	ctl.SetFields(req.Fields)

	if _, err := ctl.Advance(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, wizardResponse(form, ctl))
}

func (h *OnboardingHandler) Back(c *gin.Context) {
	form, ok := h.load(c)
	if !ok {
		return
	}

	var req BackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctl := wizard.New(form.ID, form.Data.Data(), form.Status, h.store)
	if err := ctl.GoTo(req.CurrentStep); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctl.Retreat()

	c.JSON(http.StatusOK, wizardResponse(form, ctl))
}

// Validate runs the field rules for change/blur events without saving.
func (h *OnboardingHandler) Validate(c *gin.Context) {
	form, ok := h.load(c)
	if !ok {
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Step == "" {
		errs := validation.ValidateFields(req.Fields)
		c.JSON(http.StatusOK, gin.H{"valid": len(errs) == 0, "errors": errs})
		return
	}

	idx, ok := parseStep(req.Step)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown step"})
		return
	}

	ctl := wizard.New(form.ID, form.Data.Data(), form.Status, nil)
	_ = ctl.GoTo(idx)
	ctl.SetFields(req.Fields)

	errs := make(map[string]string)
	for name := range req.Fields {
		if msg := ctl.FieldError(name); msg != "" {
			errs[name] = msg
		}
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(errs) == 0, "errors": errs})
}

func (h *OnboardingHandler) GetSection(c *gin.Context) {
	section, form, err := h.store.GetSection(c.Request.Context(), c.Param("shareId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := store.Authorize(form, c.GetHeader(PasswordHeader)); err != nil {
		respondError(c, err)
		return
	}

	idx, _ := wizard.StepIndex(section.Section)
	data := form.Data.Data()
	def := wizard.Definitions[idx]
	c.JSON(http.StatusOK, gin.H{
		"share_id":    section.ShareID,
		"client_name": form.ClientName,
		"section":     section.Section,
		"title":       def.Title,
		"icon":        def.Icon,
		"required":    validation.RequiredFields(section.Section),
		"fields":      data.Section(section.Section),
		"completed":   containsStep(data.CompletedSteps, idx),
	})
}

func (h *OnboardingHandler) UpdateSection(c *gin.Context) {
	shareID := c.Param("shareId")
	_, form, err := h.store.GetSection(c.Request.Context(), shareID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := store.Authorize(form, c.GetHeader(PasswordHeader)); err != nil {
		respondError(c, err)
		return
	}

	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateSection(c.Request.Context(), shareID, req.Fields)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"form_id":  updated.ID,
		"progress": updated.Progress,
		"status":   updated.Status,
	})
}

// parseStep accepts a step index, id or slug.
func parseStep(ref string) (int, bool) {
	if i, err := strconv.Atoi(ref); err == nil {
		return i, i >= 0 && i < wizard.TotalSteps()
	}
	return wizard.StepIndex(ref)
}

func containsStep(steps []int, idx int) bool {
	for _, s := range steps {
		if s == idx {
			return true
		}
	}
	return false
}
