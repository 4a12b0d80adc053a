package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SixtySecondsApp/onboarding-forms/middleware"
	"github.com/SixtySecondsApp/onboarding-forms/monitoring"
)

type Router struct {
	Forms      *FormHandler
	Onboarding *OnboardingHandler
	Admin      *AdminHandler
	JWTSecret  string
}

// Register mounts every route on r. Global middleware is left to the
// caller.
func (rt Router) Register(r *gin.Engine) {
	r.GET("/health", rt.Admin.Health)
	r.GET("/metrics", gin.WrapH(monitoring.Handler()))

	api := r.Group("/api")

	forms := api.Group("/forms", middleware.Auth(rt.JWTSecret))
	{
		forms.GET("", rt.Forms.ListForms)
		forms.POST("", rt.Forms.CreateForm)
		forms.GET("/search", rt.Forms.SearchForms)
		forms.GET("/:id", rt.Forms.GetForm)
		forms.DELETE("/:id", rt.Forms.DeleteForm)
		forms.POST("/:id/toggle-disabled", rt.Forms.ToggleDisabled)
		forms.PUT("/:id/password", rt.Forms.SetPassword)
		forms.POST("/:id/reminder", rt.Forms.SendReminder)
		forms.POST("/:id/sections", rt.Forms.CreateSection)
	}

	admin := api.Group("/admin", middleware.Auth(rt.JWTSecret))
	{
		admin.GET("/webhook-settings", rt.Admin.GetWebhookSettings)
		admin.PUT("/webhook-settings", rt.Admin.UpdateWebhookSettings)
		admin.GET("/notifications", rt.Admin.ListNotifications)
	}

	onboarding := api.Group("/onboarding/:ref")
	{
		onboarding.GET("", rt.Onboarding.GetWizard)
		onboarding.POST("/steps/:step", rt.Onboarding.SubmitStep)
		onboarding.POST("/back", rt.Onboarding.Back)
		onboarding.POST("/validate", rt.Onboarding.Validate)
	}

	api.GET("/sections/:shareId", rt.Onboarding.GetSection)
	api.PUT("/sections/:shareId", rt.Onboarding.UpdateSection)
}
