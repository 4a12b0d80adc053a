package wizard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/validation"
)

// Update is what an advance writes back: the answers of one section plus
// the recomputed completion state.
type Update struct {
	Section        string
	Fields         models.Fields
	CompletedSteps []int
	Progress       int
	Status         models.FormStatus
}

type Saver interface {
	SaveStep(ctx context.Context, formID string, u Update) error
}

type ValidationError struct {
	Step   int
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("step %d has invalid fields: %s", e.Step, strings.Join(names, ", "))
}

type Result struct {
	Step     int               `json:"current_step"`
	Done     bool              `json:"done"`
	Progress int               `json:"progress"`
	Status   models.FormStatus `json:"status"`
}

// Controller drives one client's pass through the wizard. It is not safe
// for concurrent use.
type Controller struct {
	formID    string
	saver     Saver
	current   int
	completed map[int]bool
	data      models.FormData
	status    models.FormStatus
}

// New restores a controller from persisted form data. The current step is
// the first incomplete one, or the last step when all are done.
func New(formID string, data models.FormData, status models.FormStatus, saver Saver) *Controller {
	c := &Controller{
		formID:    formID,
		saver:     saver,
		completed: make(map[int]bool),
		data:      data.Clone(),
		status:    status,
	}
	for _, i := range NormalizeCompleted(data.CompletedSteps) {
		c.completed[i] = true
	}
	c.current = FirstIncomplete(c.CompletedSteps())
	if c.current < 0 {
		c.current = len(Definitions) - 1
	}
	return c
}

func (c *Controller) CurrentStep() int {
	return c.current
}

// GoTo jumps to a step, as a deep link does.
func (c *Controller) GoTo(step int) error {
	if step < 0 || step >= len(Definitions) {
		return fmt.Errorf("step %d out of range", step)
	}
	c.current = step
	return nil
}

// SetField stores a trimmed value in the current step's section.
func (c *Controller) SetField(name, value string) {
	c.SetFields(map[string]string{name: value})
}

// SetFields stores trimmed values in the current step's section. Keys of
// other steps are kept until Advance rejects them.
func (c *Controller) SetFields(fields map[string]string) {
	trimmed := make(models.Fields, len(fields))
	for k, v := range fields {
		trimmed[k] = strings.TrimSpace(v)
	}
	c.data.SetSection(Definitions[c.current].ID, trimmed)
}

// FieldError validates one field of the current step.
func (c *Controller) FieldError(name string) string {
	section := Definitions[c.current].ID
	if !validation.KnownField(section, name) {
		return validation.UnknownField
	}
	return validation.ValidateField(name, c.data.Section(section)[name])
}

// Advance validates the current step, saves it and moves to the next
// incomplete step. Nothing changes locally when validation or the save
// fails.
func (c *Controller) Advance(ctx context.Context) (Result, error) {
	section := Definitions[c.current].ID
	fields := c.data.Section(section)

	if errs := validation.ValidateSection(section, fields); len(errs) > 0 {
		return Result{}, &ValidationError{Step: c.current, Fields: errs}
	}

	completed := NormalizeCompleted(append(c.CompletedSteps(), c.current))
	progress := CalculateProgress(len(completed), len(Definitions))
	status := StatusFor(len(completed), len(Definitions), c.status)

	if c.saver != nil {
		u := Update{
			Section:        section,
			Fields:         cloneFields(fields),
			CompletedSteps: completed,
			Progress:       progress,
			Status:         status,
		}
		if err := c.saver.SaveStep(ctx, c.formID, u); err != nil {
			return Result{}, fmt.Errorf("save step %s: %w", section, err)
		}
	}

	c.completed[c.current] = true
	c.data.CompletedSteps = completed
	c.status = status

	next := c.nextIncomplete()
	done := next < 0
	if !done {
		c.current = next
	}

	return Result{Step: c.current, Done: done, Progress: progress, Status: status}, nil
}

// Retreat moves back one step without saving.
func (c *Controller) Retreat() int {
	if c.current > 0 {
		c.current--
	}
	return c.current
}

func (c *Controller) CompletedSteps() []int {
	out := make([]int, 0, len(c.completed))
	for i := range c.completed {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (c *Controller) Progress() int {
	return CalculateProgress(len(c.completed), len(Definitions))
}

func (c *Controller) Status() models.FormStatus {
	return c.status
}

func (c *Controller) Done() bool {
	return len(c.completed) == len(Definitions)
}

func (c *Controller) Steps() []Step {
	return Steps(c.CompletedSteps(), c.current)
}

func (c *Controller) Data() models.FormData {
	d := c.data.Clone()
	d.CompletedSteps = c.CompletedSteps()
	return d
}

// nextIncomplete looks forward from the current step, then wraps around
// to pick up steps skipped earlier.
func (c *Controller) nextIncomplete() int {
	n := len(Definitions)
	for off := 1; off < n; off++ {
		i := (c.current + off) % n
		if !c.completed[i] {
			return i
		}
	}
	return -1
}

func cloneFields(f models.Fields) models.Fields {
	out := make(models.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
