// Package notify turns form events into admin notifications and outgoing
// webhook calls.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
)

const feedSize = 100

type Notification struct {
	Event      string    `json:"event"`
	FormID     string    `json:"form_id"`
	ClientName string    `json:"client_name,omitempty"`
	Message    string    `json:"message"`
	Link       string    `json:"link,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Feed keeps the latest notifications per admin in a capped Redis list.
type Feed struct {
	cache     utils.RedisClient
	publicURL string
}

func NewFeed(cache utils.RedisClient, publicURL string) *Feed {
	return &Feed{cache: cache, publicURL: publicURL}
}

func feedKey(owner string) string {
	return "notifications:" + owner
}

func (f *Feed) Push(ctx context.Context, event models.FormEvent) error {
	if event.Owner == "" {
		return nil
	}
	raw, err := json.Marshal(f.Build(event))
	if err != nil {
		return err
	}
	return f.cache.PushCapped(ctx, feedKey(event.Owner), string(raw), feedSize)
}

func (f *Feed) Recent(ctx context.Context, owner string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > feedSize {
		limit = 20
	}
	items, err := f.cache.Range(ctx, feedKey(owner), int64(limit))
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(items))
	for _, raw := range items {
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Build renders the notification for an event.
func (f *Feed) Build(event models.FormEvent) Notification {
	n := Notification{
		Event:     event.Event,
		FormID:    event.FormID,
		CreatedAt: event.OccurredAt,
	}
	if event.Form != nil {
		n.ClientName = event.Form.ClientName
		n.Link = OnboardingLink(f.publicURL, event.Form.Slug)
	}

	name := n.ClientName
	if name == "" {
		name = "A client"
	}
	switch event.Event {
	case models.EventFormCreated:
		n.Message = fmt.Sprintf("Onboarding form created for %s", name)
	case models.EventFormCompleted:
		n.Message = fmt.Sprintf("%s completed their onboarding", name)
	case models.EventFormReminder:
		n.Message = fmt.Sprintf("Reminder sent to %s", name)
	case models.EventFormDeleted:
		n.Message = "Onboarding form deleted"
	case models.EventFormUpdated:
		if event.Step != "" {
			n.Message = fmt.Sprintf("%s saved the %s step", name, event.Step)
		} else {
			n.Message = fmt.Sprintf("Onboarding form for %s updated", name)
		}
	default:
		n.Message = event.Event
	}
	return n
}

func OnboardingLink(publicURL, slug string) string {
	if slug == "" {
		return ""
	}
	return publicURL + "/onboarding/" + slug
}
