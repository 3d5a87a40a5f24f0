package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Planner holds the agent's working plan for the current task. Plans are
// ephemeral; a new create_plan call replaces the previous one.
type Planner struct {
	mu    sync.Mutex
	steps []planStep
}

type planStep struct {
	description string
	done        bool
}

func NewPlanner() *Planner { return &Planner{} }

// Set replaces the current plan.
func (p *Planner) Set(steps []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.steps = make([]planStep, len(steps))
	for i, s := range steps {
		p.steps[i] = planStep{description: s}
	}
}

// Complete marks the 1-based step as done.
func (p *Planner) Complete(step int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if step < 1 || step > len(p.steps) {
		return fmt.Errorf("%w: step %d out of range (plan has %d steps)", ErrInvalidArgs, step, len(p.steps))
	}
	p.steps[step-1].done = true
	return nil
}

// Render formats the plan with completion markers.
func (p *Planner) Render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.steps) == 0 {
		return "no plan"
	}

	var sb strings.Builder
	for i, s := range p.steps {
		marker := " "
		if s.done {
			marker = "x"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, marker, s.description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// CreatePlanTool records a step-by-step plan for the current task.
type CreatePlanTool struct {
	planner *Planner
}

func NewCreatePlanTool(planner *Planner) *CreatePlanTool {
	return &CreatePlanTool{planner: planner}
}

func (t *CreatePlanTool) Name() string { return "create_plan" }

func (t *CreatePlanTool) Description() string {
	return "Record a step-by-step plan for the current task"
}

func (t *CreatePlanTool) Schema() map[string]any {
	return map[string]any{
		"steps": "array of strings, the plan steps in order",
	}
}

type createPlanArgs struct {
	Steps []string `json:"steps"`
}

func (t *CreatePlanTool) Execute(_ context.Context, args map[string]any) (string, error) {
	var a createPlanArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if len(a.Steps) == 0 {
		return "", fmt.Errorf("%w: steps must not be empty", ErrInvalidArgs)
	}

	t.planner.Set(a.Steps)
	return "plan recorded:\n" + t.planner.Render(), nil
}

// CompleteStepTool marks one plan step as finished.
type CompleteStepTool struct {
	planner *Planner
}

func NewCompleteStepTool(planner *Planner) *CompleteStepTool {
	return &CompleteStepTool{planner: planner}
}

func (t *CompleteStepTool) Name() string { return "complete_step" }

func (t *CompleteStepTool) Description() string {
	return "Mark a plan step as completed (1-based step number)"
}

func (t *CompleteStepTool) Schema() map[string]any {
	return map[string]any{
		"step": "integer, the 1-based number of the completed step",
	}
}

type completeStepArgs struct {
	Step int `json:"step"`
}

func (t *CompleteStepTool) Execute(_ context.Context, args map[string]any) (string, error) {
	var a completeStepArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if err := t.planner.Complete(a.Step); err != nil {
		return "", err
	}
	return "plan:\n" + t.planner.Render(), nil
}
