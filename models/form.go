package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FormStatus string

const (
	StatusPending    FormStatus = "pending"
	StatusInProgress FormStatus = "in_progress"
	StatusCompleted  FormStatus = "completed"
)

// Rank orders statuses so transitions can be checked to only move forward.
func (s FormStatus) Rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

func (s FormStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Fields is one wizard section's answers keyed by field name.
type Fields map[string]string

// FormData is the JSON payload stored in forms.data.
type FormData struct {
	BusinessDetails   Fields `json:"businessDetails,omitempty"`
	Campaign          Fields `json:"campaign,omitempty"`
	Audience          Fields `json:"audience,omitempty"`
	Typography        Fields `json:"typography,omitempty"`
	BrandAssets       Fields `json:"brandAssets,omitempty"`
	SystemIntegration Fields `json:"systemIntegration,omitempty"`
	CompletedSteps    []int  `json:"completedSteps"`
}

// Section returns the answers stored under a section key, or nil for an
// unknown key.
func (d *FormData) Section(key string) Fields {
	if p := d.sectionPtr(key); p != nil {
		return *p
	}
	return nil
}

// SetSection merges fields into a section; existing keys not present in
// fields are kept. It reports false for an unknown key.
func (d *FormData) SetSection(key string, fields Fields) bool {
	p := d.sectionPtr(key)
	if p == nil {
		return false
	}
	if *p == nil {
		*p = Fields{}
	}
	for k, v := range fields {
		(*p)[k] = v
	}
	return true
}

func (d *FormData) sectionPtr(key string) *Fields {
	switch key {
	case "businessDetails":
		return &d.BusinessDetails
	case "campaign":
		return &d.Campaign
	case "audience":
		return &d.Audience
	case "typography":
		return &d.Typography
	case "brandAssets":
		return &d.BrandAssets
	case "systemIntegration":
		return &d.SystemIntegration
	}
	return nil
}

// Form is a client onboarding record.
type Form struct {
	ID           string                       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientName   string                       `gorm:"not null" json:"client_name"`
	ClientEmail  string                       `gorm:"not null" json:"client_email"`
	Progress     int                          `gorm:"not null;default:0" json:"progress"`
	Status       FormStatus                   `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Data         datatypes.JSONType[FormData] `gorm:"type:jsonb" json:"data"`
	Slug         string                       `gorm:"uniqueIndex;not null" json:"slug"`
	Password     *string                      `json:"-"`
	IsDisabled   bool                         `gorm:"not null;default:false" json:"is_disabled"`
	LastReminder *time.Time                   `json:"last_reminder"`
	CreatedBy    string                       `gorm:"index" json:"created_by"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

func (f *Form) HasPassword() bool {
	return f.Password != nil && *f.Password != ""
}

// FormSection shares a single wizard section of a form through a share id.
type FormSection struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	FormID    string    `gorm:"type:uuid;index;not null" json:"form_id"`
	Section   string    `gorm:"not null" json:"section"`
	ShareID   string    `gorm:"uniqueIndex;not null" json:"share_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *FormSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ShareID == "" {
		s.ShareID = uuid.NewString()
	}
	return nil
}

// WebhookSetting is an admin's outgoing webhook subscription.
type WebhookSetting struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	CreatedBy string                      `gorm:"uniqueIndex;not null" json:"created_by"`
	URL       string                      `gorm:"not null" json:"url"`
	Secret    string                      `json:"-"`
	Events    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"events"`
	Enabled   bool                        `gorm:"not null;default:true" json:"enabled"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// Wants reports whether the setting subscribes to an event type. An empty
// event list subscribes to everything.
func (w *WebhookSetting) Wants(event string) bool {
	if !w.Enabled {
		return false
	}
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate sections freely.
func (d FormData) Clone() FormData {
	out := FormData{CompletedSteps: append([]int(nil), d.CompletedSteps...)}
	for _, key := range SectionKeys {
		if src := d.Section(key); src != nil {
			dst := make(Fields, len(src))
			for k, v := range src {
				dst[k] = v
			}
			out.SetSection(key, dst)
		}
	}
	return out
}

// SectionKeys lists the data sections in wizard order.
var SectionKeys = []string{
	"businessDetails",
	"campaign",
	"audience",
	"typography",
	"brandAssets",
	"systemIntegration",
}
