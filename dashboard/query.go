package dashboard

import (
	"sort"
	"strings"

	"github.com/SixtySecondsApp/onboarding-forms/models"
)

type SortField string

const (
	SortCreatedAt  SortField = "created_at"
	SortUpdatedAt  SortField = "updated_at"
	SortClientName SortField = "client_name"
	SortProgress   SortField = "progress"
)

// Query filters and orders an already fetched list of forms.
type Query struct {
	Search string
	Status models.FormStatus
	SortBy SortField
	Asc    bool
}

func (q Query) Apply(forms []models.Form) []models.Form {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]models.Form, 0, len(forms))
	for _, f := range forms {
		if q.Status != "" && f.Status != q.Status {
			continue
		}
		if search != "" && !matches(f, search) {
			continue
		}
		out = append(out, f)
	}

	less := q.less()
	sort.SliceStable(out, func(i, j int) bool {
		if q.Asc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

func (q Query) less() func(a, b models.Form) bool {
	switch q.SortBy {
	case SortUpdatedAt:
		return func(a, b models.Form) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortClientName:
		return func(a, b models.Form) bool { return strings.ToLower(a.ClientName) < strings.ToLower(b.ClientName) }
	case SortProgress:
		return func(a, b models.Form) bool { return a.Progress < b.Progress }
	default:
		return func(a, b models.Form) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func matches(f models.Form, search string) bool {
	return strings.Contains(strings.ToLower(f.ClientName), search) ||
		strings.Contains(strings.ToLower(f.ClientEmail), search) ||
		strings.Contains(f.Slug, search)
}

// Summary backs the dashboard header cards.
type Summary struct {
	Total           int `json:"total"`
	Pending         int `json:"pending"`
	InProgress      int `json:"in_progress"`
	Completed       int `json:"completed"`
	AverageProgress int `json:"average_progress"`
}

func Summarize(forms []models.Form) Summary {
	var s Summary
	total := 0
	for _, f := range forms {
		s.Total++
		total += f.Progress
		switch f.Status {
		case models.StatusCompleted:
			s.Completed++
		case models.StatusInProgress:
			s.InProgress++
		default:
			s.Pending++
		}
	}
	if s.Total > 0 {
		s.AverageProgress = total / s.Total
	}
	return s
}
