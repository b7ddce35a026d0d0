// Package flow implements the order wizard's state machine: the step
// tables, per-step applicability and validity, navigation and answer
// normalisation. It is pure and does no I/O.
package flow

import (
	"fmt"

	"github.com/aleber123/nytt-sub001/internal/domain"
)

// Observer is notified with a copy of the answers after every accepted
// update, once normalisation has run.
type Observer func(a domain.Answers)

// StepStatus describes one step for rendering the progress indicator.
type StepStatus struct {
	Index      int    `json:"index"`
	ID         StepID `json:"id"`
	Applicable bool   `json:"applicable"`
	Visited    bool   `json:"visited"`
	Valid      bool   `json:"valid"`
}

// Controller owns the cursor and the answers of one draft. It is not safe
// for concurrent use; callers serialise access per draft.
type Controller struct {
	flow       string
	steps      []Step
	answers    domain.Answers
	current    int
	maxVisited int
	observers  []Observer
}

// New starts a flow at its first step with default answers.
func New(flowName string) (*Controller, error) {
	return Restore(flowName, domain.DefaultAnswers(), 0, 0)
}

// Restore rebuilds a controller from persisted state. A cursor that no
// longer fits the table or points at an inapplicable step is pulled back.
func Restore(flowName string, answers domain.Answers, current, maxVisited int) (*Controller, error) {
	steps, err := Steps(flowName)
	if err != nil {
		return nil, err
	}
	last := len(steps) - 1
	if current < 0 || current > last {
		return nil, fmt.Errorf("step index %d out of range for flow %s", current, flowName)
	}
	maxVisited = min(max(maxVisited, current), last)

	c := &Controller{
		flow:       flowName,
		steps:      steps,
		answers:    answers.Clone(),
		current:    current,
		maxVisited: maxVisited,
	}
	c.fallBack()
	return c, nil
}

// Flow returns the flow name.
func (c *Controller) Flow() string { return c.flow }

// CurrentStepIndex returns the cursor.
func (c *Controller) CurrentStepIndex() int { return c.current }

// CurrentStep returns the step under the cursor.
func (c *Controller) CurrentStep() Step { return c.steps[c.current] }

// MaxVisited returns the furthest step reached with GoNext.
func (c *Controller) MaxVisited() int { return c.maxVisited }

// TerminalIndex returns the index of the review step.
func (c *Controller) TerminalIndex() int { return len(c.steps) - 1 }

// IsTerminal reports whether the cursor is on the review step.
func (c *Controller) IsTerminal() bool { return c.current == c.TerminalIndex() }

// Answers returns a copy of the current answers.
func (c *Controller) Answers() domain.Answers { return c.answers.Clone() }

// Observe registers an observer.
func (c *Controller) Observe(o Observer) {
	c.observers = append(c.observers, o)
}

// CanAdvance reports whether the current step is complete.
func (c *Controller) CanAdvance() bool {
	return c.steps[c.current].Valid(&c.answers)
}

// FieldErrors returns what keeps the current step from being complete.
func (c *Controller) FieldErrors() map[string]string {
	return c.steps[c.current].Check(&c.answers)
}

// Applies reports whether step i is shown for the current answers.
func (c *Controller) Applies(i int) bool {
	return i >= 0 && i < len(c.steps) && c.steps[i].Applies(&c.answers)
}

// GoNext moves to the next applicable step. It is a no-op on the review
// step or while the current step is incomplete.
func (c *Controller) GoNext() bool {
	if c.IsTerminal() || !c.CanAdvance() {
		return false
	}
	for i := c.current + 1; i < len(c.steps); i++ {
		if c.Applies(i) {
			c.current = i
			c.maxVisited = max(c.maxVisited, i)
			return true
		}
	}
	return false
}

// GoBack moves to the previous applicable step. It is a no-op on the first
// step.
func (c *Controller) GoBack() bool {
	for i := c.current - 1; i >= 0; i-- {
		if c.Applies(i) {
			c.current = i
			return true
		}
	}
	return false
}

// GoToStep jumps to an applicable step no further than MaxVisited. Jumping
// to the current step reports false.
func (c *Controller) GoToStep(i int) bool {
	if i < 0 || i > c.maxVisited || i == c.current || !c.Applies(i) {
		return false
	}
	c.current = i
	return true
}

// UpdateAnswers validates p, merges it, restores the answer invariants and
// notifies observers. If the current step stopped applying, the cursor
// falls back to the nearest earlier applicable step.
func (c *Controller) UpdateAnswers(p domain.Patch) error {
	p = p.Canonical()
	if err := p.Validate(); err != nil {
		return err
	}
	p.Apply(&c.answers)
	normalize(&c.answers, p, c.flow)
	c.fallBack()
	c.notify()
	return nil
}

// SetQuote records a price quote. Pricing is derived data and never part
// of a patch.
func (c *Controller) SetQuote(lines []domain.PricingLine, total int64) {
	c.answers.PricingBreakdown = append([]domain.PricingLine(nil), lines...)
	c.answers.TotalPrice = total
	c.notify()
}

// ClearQuote drops a quote made stale by a pricing-relevant change.
func (c *Controller) ClearQuote() {
	c.answers.PricingBreakdown = nil
	c.answers.TotalPrice = 0
}

// FillSlot stores a file reference in upload slot i and returns the slot's
// previous content.
func (c *Controller) FillSlot(i int, f domain.FileSlot) (domain.FileSlot, error) {
	if c.answers.DocumentSource != domain.SourceUpload {
		return domain.FileSlot{}, fmt.Errorf("uploads require document_source %q", domain.SourceUpload)
	}
	if i < 0 || i >= len(c.answers.UploadedFiles) {
		return domain.FileSlot{}, fmt.Errorf("slot %d out of range, quantity is %d", i, len(c.answers.UploadedFiles))
	}
	prev := c.answers.UploadedFiles[i]
	c.answers.UploadedFiles[i] = f
	c.notify()
	return prev, nil
}

// Incomplete returns the first applicable step that is not valid, or false
// when every applicable step is complete.
func (c *Controller) Incomplete() (StepID, bool) {
	for i, s := range c.steps {
		if c.Applies(i) && !s.Valid(&c.answers) {
			return s.ID, true
		}
	}
	return "", false
}

// Statuses describes every step of the flow.
func (c *Controller) Statuses() []StepStatus {
	out := make([]StepStatus, len(c.steps))
	for i, s := range c.steps {
		applicable := c.Applies(i)
		out[i] = StepStatus{
			Index:      i,
			ID:         s.ID,
			Applicable: applicable,
			Visited:    i <= c.maxVisited,
			Valid:      applicable && s.Valid(&c.answers),
		}
	}
	return out
}

// ApplicableSteps returns the IDs of the steps shown for the current answers.
func (c *Controller) ApplicableSteps() []StepID {
	ids := make([]StepID, 0, len(c.steps))
	for i, s := range c.steps {
		if c.Applies(i) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func (c *Controller) fallBack() {
	for c.current > 0 && !c.Applies(c.current) {
		c.current--
	}
}

func (c *Controller) notify() {
	for _, o := range c.observers {
		o(c.answers.Clone())
	}
}
