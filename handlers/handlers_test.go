package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SixtySecondsApp/onboarding-forms/dashboard"
	"github.com/SixtySecondsApp/onboarding-forms/middleware"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/store"
	"github.com/SixtySecondsApp/onboarding-forms/validation"
)

const testSecret = "handler-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := models.NewMemoryRepository()
	st := store.New(repo, nil, nil, time.Minute)
	svc := dashboard.NewService(st, nil)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	Router{
		Forms:      NewFormHandler(svc, "https://onboard.example.com"),
		Onboarding: NewOnboardingHandler(st),
		Admin:      NewAdminHandler(repo, nil, nil),
		JWTSecret:  testSecret,
	}.Register(r)

	return &testServer{t: t, router: r, token: adminToken(t, "admin-1")}
}

func adminToken(t *testing.T, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) admin(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, body, map[string]string{"Authorization": "Bearer " + s.token})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) createForm(name string) FormResponse {
	w := s.admin(http.MethodPost, "/api/forms", gin.H{"client_name": name, "client_email": "ops@example.com"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[FormResponse](s.t, w)
}

var answers = map[string]map[string]string{
	"business-details": {
		"businessName": "Acme Corp", "contactName": "Jo Bloggs", "email": "jo@acme.io",
		"phone": "+44 7911123456", "industry": "Retail",
	},
	"campaign":           {"campaignName": "Launch", "objective": "Leads", "budget": "1000"},
	"target-audience":    {"targetLocation": "UK", "ageRange": "25-44", "interests": "Tech"},
	"typography":         {"primaryFont": "Inter"},
	"brand-assets":       {"logoUrl": "https://cdn.acme.io/logo.svg", "brandColors": "#000000"},
	"system-integration": {"crmSystem": "Salesforce"},
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/forms", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndListForms(t *testing.T) {
	s := newTestServer(t)

	form := s.createForm("Acme")
	assert.Regexp(t, `^acme-[a-z0-9]{4}$`, form.Slug)
	assert.Equal(t, "https://onboard.example.com/onboarding/"+form.Slug, form.Link)
	assert.Equal(t, models.StatusPending, form.Status)

	w := s.admin(http.MethodPost, "/api/forms", gin.H{"client_name": "B", "client_email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.createForm("Beta")

	w = s.admin(http.MethodGet, "/api/forms?search=acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Forms   []FormResponse    `json:"forms"`
		Summary dashboard.Summary `json:"summary"`
	}](t, w)
	require.Len(t, list.Forms, 1)
	assert.Equal(t, form.ID, list.Forms[0].ID)
	assert.Equal(t, 1, list.Summary.Pending)

	w = s.admin(http.MethodGet, "/api/forms?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	other := &testServer{t: t, router: s.router, token: adminToken(t, "admin-2")}
	w = other.admin(http.MethodGet, "/api/forms/"+form.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminActions(t *testing.T) {
	s := newTestServer(t)
	form := s.createForm("Acme")

	w := s.admin(http.MethodPost, "/api/forms/"+form.ID+"/toggle-disabled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[FormResponse](t, w).IsDisabled)

	w = s.do(http.MethodGet, "/api/onboarding/"+form.Slug, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.admin(http.MethodPost, "/api/forms/"+form.ID+"/toggle-disabled", nil)

	w = s.admin(http.MethodPut, "/api/forms/"+form.ID+"/password", gin.H{"password": "letmein"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[FormResponse](t, w).HasPassword)

	w = s.do(http.MethodGet, "/api/onboarding/"+form.Slug, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, w)["password_required"])

	w = s.do(http.MethodGet, "/api/onboarding/"+form.Slug, nil, map[string]string{PasswordHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/onboarding/"+form.Slug, nil, map[string]string{PasswordHeader: "letmein"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.admin(http.MethodPost, "/api/forms/"+form.ID+"/reminder", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"ok": true}, decode[map[string]interface{}](t, w))

	w = s.admin(http.MethodGet, "/api/forms/"+form.ID, nil)
	assert.NotNil(t, decode[FormResponse](t, w).LastReminder)

	w = s.admin(http.MethodPost, "/api/forms/does-not-exist/reminder", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]interface{}{"ok": false}, decode[map[string]interface{}](t, w))

	w = s.admin(http.MethodDelete, "/api/forms/"+form.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.admin(http.MethodGet, "/api/forms/"+form.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizardFlow(t *testing.T) {
	s := newTestServer(t)
	form := s.createForm("Acme")
	base := "/api/onboarding/" + form.Slug

	w := s.do(http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[WizardResponse](t, w)
	assert.Equal(t, 0, state.CurrentStep)
	assert.Equal(t, 8, state.Progress)
	require.Len(t, state.Steps, 6)

	w = s.do(http.MethodPost, base+"/steps/business-details", gin.H{"fields": gin.H{"businessName": "A"}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	verr := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, "Name must be at least 2 characters", verr.Fields["businessName"])

	order := []string{"business-details", "campaign", "target-audience", "typography", "brand-assets", "system-integration"}
	for i, step := range order {
		w = s.do(http.MethodPost, base+"/steps/"+step, gin.H{"fields": answers[step]}, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		state = decode[WizardResponse](t, w)
		if i < len(order)-1 {
			assert.Equal(t, i+1, state.CurrentStep)
			assert.Equal(t, models.StatusInProgress, state.Status)
		}
	}
	assert.True(t, state.Done)
	assert.Equal(t, 100, state.Progress)
	assert.Equal(t, models.StatusCompleted, state.Status)

	w = s.admin(http.MethodGet, "/api/forms/"+form.ID, nil)
	saved := decode[FormResponse](t, w)
	assert.Equal(t, models.StatusCompleted, saved.Status)
	assert.Equal(t, 100, saved.Progress)
	assert.Equal(t, "Acme Corp", saved.Data.BusinessDetails["businessName"])

	w = s.admin(http.MethodPost, "/api/forms/"+form.ID+"/reminder", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWizardDeepLinkBackAndValidate(t *testing.T) {
	s := newTestServer(t)
	form := s.createForm("Acme")
	base := "/api/onboarding/" + form.ID

	w := s.do(http.MethodGet, base+"?section=typography", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[WizardResponse](t, w).CurrentStep)

	w = s.do(http.MethodGet, base+"?section=pricing", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, base+"/back", gin.H{"current_step": 3}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[WizardResponse](t, w).CurrentStep)

	w = s.do(http.MethodPost, base+"/back", gin.H{"current_step": 0}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[WizardResponse](t, w).CurrentStep)

	w = s.do(http.MethodPost, base+"/steps/9", gin.H{"fields": gin.H{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, base+"/validate", gin.H{"fields": gin.H{"phone": "123", "website": ""}}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Valid  bool              `json:"valid"`
		Errors map[string]string `json:"errors"`
	}](t, w)
	assert.False(t, res.Valid)
	assert.Equal(t, map[string]string{"phone": "Please enter a valid phone number"}, res.Errors)
}

func TestSharedSection(t *testing.T) {
	s := newTestServer(t)
	form := s.createForm("Acme")

	w := s.admin(http.MethodPost, "/api/forms/"+form.ID+"/sections", gin.H{"section": "brand-assets"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	share := decode[map[string]string](t, w)
	assert.Equal(t, "brandAssets", share["section"])

	w = s.do(http.MethodGet, "/api/sections/"+share["share_id"], nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Brand Assets", decode[map[string]interface{}](t, w)["title"])

	w = s.do(http.MethodPut, "/api/sections/"+share["share_id"], gin.H{"fields": answers["brand-assets"]}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(17), decode[map[string]interface{}](t, w)["progress"])

	w = s.do(http.MethodGet, "/api/sections/unknown-share", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.admin(http.MethodPost, "/api/forms/"+form.ID+"/sections", gin.H{"section": "pricing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchFallsBackToList(t *testing.T) {
	s := newTestServer(t)
	s.createForm("Acme")
	s.createForm("Beta")

	w := s.admin(http.MethodGet, "/api/forms/search?q=bet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Results []dashboard.SearchHit `json:"results"`
	}](t, w)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Beta", res.Results[0].ClientName)

	w = s.admin(http.MethodGet, "/api/forms/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookSettingsAndNotifications(t *testing.T) {
	s := newTestServer(t)

	w := s.admin(http.MethodGet, "/api/admin/webhook-settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[WebhookResponse](t, w).Configured)

	w = s.admin(http.MethodPut, "/api/admin/webhook-settings", gin.H{"url": "https://hooks.example.com/in", "secret": "abc", "events": []string{"form_completed"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[WebhookResponse](t, w)
	assert.True(t, got.Enabled)
	assert.True(t, got.HasSecret)
	assert.Equal(t, []string{"form_completed"}, got.Events)

	w = s.admin(http.MethodPut, "/api/admin/webhook-settings", gin.H{"url": "https://hooks.example.com/in", "events": []string{"form_exploded"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.admin(http.MethodGet, "/api/admin/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"notifications":[]}`, w.Body.String())
}

func TestHealthWithoutCache(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitStepRejectsFieldsOfOtherSteps(t *testing.T) {
	s := newTestServer(t)
	form := s.createForm("Acme")

	fields := gin.H{"ssn": "123-45-6789", "campaignName": "x"}
	for k, v := range answers["business-details"] {
		fields[k] = v
	}
	w := s.do(http.MethodPost, "/api/onboarding/"+form.ID+"/steps/0", gin.H{"fields": fields}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	verr := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, validation.UnknownField, verr.Fields["ssn"])
	assert.Equal(t, validation.UnknownField, verr.Fields["campaignName"])

	w = s.admin(http.MethodGet, "/api/forms/"+form.ID, nil)
	saved := decode[FormResponse](t, w)
	assert.Empty(t, saved.Data.BusinessDetails)
	assert.Equal(t, 0, saved.Progress)
}

func TestValidateScopedToStep(t *testing.T) {
	s := newTestServer(t)
	form := s.createForm("Acme")

	w := s.do(http.MethodPost, "/api/onboarding/"+form.ID+"/validate", gin.H{
		"step":   "campaign",
		"fields": gin.H{"campaignName": " X ", "budget": "500", "email": "ops@acme.io"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Valid  bool              `json:"valid"`
		Errors map[string]string `json:"errors"`
	}](t, w)
	assert.False(t, res.Valid)
	assert.Equal(t, map[string]string{
		"campaignName": "Campaign name must be at least 2 characters",
		"email":        validation.UnknownField,
	}, res.Errors)

	w = s.do(http.MethodPost, "/api/onboarding/"+form.ID+"/validate", gin.H{"step": "pricing", "fields": gin.H{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMalformedFormIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/forms/abc", "/api/forms/abc/toggle-disabled"} {
		method := http.MethodGet
		if path != "/api/forms/abc" {
			method = http.MethodPost
		}
		w := s.admin(method, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
