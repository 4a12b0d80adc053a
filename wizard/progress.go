package wizard

import (
	"math"

	"github.com/SixtySecondsApp/onboarding-forms/models"
)

// MinimumProgress is shown as soon as a form has steps, so a fresh form
// never renders an empty bar.
const MinimumProgress = 8

// CalculateProgress maps completed steps onto 0..100.
func CalculateProgress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	p := int(math.Round(float64(completed) * 100 / float64(total)))
	if p < MinimumProgress {
		return MinimumProgress
	}
	return p
}

// StatusFor derives the form status from step completion. The result is
// never behind previous.
func StatusFor(completed, total int, previous models.FormStatus) models.FormStatus {
	next := models.StatusPending
	switch {
	case total > 0 && completed >= total:
		next = models.StatusCompleted
	case completed > 0:
		next = models.StatusInProgress
	}
	if previous.Rank() > next.Rank() {
		return previous
	}
	return next
}
