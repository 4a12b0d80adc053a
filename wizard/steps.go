package wizard

import "sort"

type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepCurrent   StepStatus = "current"
	StepUpcoming  StepStatus = "upcoming"
)

// StepDef describes one wizard page. ID doubles as the key of the
// section inside the form data.
type StepDef struct {
	ID    string
	Slug  string
	Title string
	Icon  string
}

var Definitions = []StepDef{
	{ID: "businessDetails", Slug: "business-details", Title: "Business Details", Icon: "building"},
	{ID: "campaign", Slug: "campaign", Title: "Campaign Information", Icon: "megaphone"},
	{ID: "audience", Slug: "target-audience", Title: "Target Audience", Icon: "users"},
	{ID: "typography", Slug: "typography", Title: "Typography", Icon: "type"},
	{ID: "brandAssets", Slug: "brand-assets", Title: "Brand Assets", Icon: "image"},
	{ID: "systemIntegration", Slug: "system-integration", Title: "System Integration", Icon: "plug"},
}

func TotalSteps() int {
	return len(Definitions)
}

// Step is the derived view of a wizard page. It is never stored.
type Step struct {
	Index  int        `json:"index"`
	ID     string     `json:"id"`
	Slug   string     `json:"slug"`
	Title  string     `json:"title"`
	Icon   string     `json:"icon"`
	Status StepStatus `json:"status"`
}

func Steps(completed []int, current int) []Step {
	done := make(map[int]bool, len(completed))
	for _, i := range completed {
		done[i] = true
	}

	steps := make([]Step, len(Definitions))
	for i, d := range Definitions {
		status := StepUpcoming
		switch {
		case i == current:
			status = StepCurrent
		case done[i]:
			status = StepCompleted
		}
		steps[i] = Step{Index: i, ID: d.ID, Slug: d.Slug, Title: d.Title, Icon: d.Icon, Status: status}
	}
	return steps
}

// StepIndex resolves a deep-link slug or a step id to its index.
func StepIndex(ref string) (int, bool) {
	for i, d := range Definitions {
		if d.Slug == ref || d.ID == ref {
			return i, true
		}
	}
	return 0, false
}

// NormalizeCompleted drops out-of-range and duplicate indices and sorts
// the rest.
func NormalizeCompleted(completed []int) []int {
	seen := make(map[int]bool, len(completed))
	out := make([]int, 0, len(completed))
	for _, i := range completed {
		if i < 0 || i >= len(Definitions) || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// FirstIncomplete returns the lowest step not yet completed, or -1 when
// every step is done.
func FirstIncomplete(completed []int) int {
	done := make(map[int]bool, len(completed))
	for _, i := range completed {
		done[i] = true
	}
	for i := range Definitions {
		if !done[i] {
			return i
		}
	}
	return -1
}
