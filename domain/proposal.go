package domain

import (
	"errors"
	"fmt"
)

// ProposedProject is an externally supplied candidate structure to be
// reconciled against the current persisted tree. It arrives either from the
// assistant's updated_project payload or from a manual PUT.
//
// A nil ID always means "create new". An entity present in the current tree
// but absent from the proposal's identified set is implicitly deleted.
type ProposedProject struct {
	Title  string          `json:"title"`
	Groups []ProposedGroup `json:"groups"`
}

// ProposedGroup mirrors Group with a nullable identifier.
type ProposedGroup struct {
	ID       *string        `json:"id"`
	Title    string         `json:"title"`
	Color    string         `json:"color"`
	Position int            `json:"position"`
	Tasks    []ProposedTask `json:"tasks"`
}

// ProposedTask mirrors Task with a nullable identifier.
type ProposedTask struct {
	ID             *string  `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours"`
	Position       int      `json:"position"`
	Status         string   `json:"status"`
}

var errEmptyProposalTitle = errors.New("proposed project title is required")

// ProposalOf echoes the current tree as a proposal that keeps every
// identifier. Reconciling it against the same project is a no-op; callers
// overlay partial edits on top of it.
func ProposalOf(p Project) ProposedProject {
	groups := make([]ProposedGroup, len(p.Groups))
	for gi, g := range p.Groups {
		tasks := make([]ProposedTask, len(g.Tasks))
		for ti, t := range g.Tasks {
			id := t.ID
			tasks[ti] = ProposedTask{
				ID:             &id,
				Title:          t.Title,
				Description:    t.Description,
				Priority:       t.Priority,
				EstimatedHours: t.EstimatedHours,
				Position:       t.Position,
				Status:         t.Status,
			}
		}
		id := g.ID
		groups[gi] = ProposedGroup{
			ID:       &id,
			Title:    g.Title,
			Color:    g.Color,
			Position: g.Position,
			Tasks:    tasks,
		}
	}
	return ProposedProject{Title: p.Title, Groups: groups}
}

// Validate checks field-level constraints and fills defaults (group color,
// task status, priority). It does not check identifiers against the current
// tree; the differ does that.
func (p *ProposedProject) Validate() error {
	if p.Title == "" {
		return errEmptyProposalTitle
	}
	for gi := range p.Groups {
		g := &p.Groups[gi]
		if g.Title == "" {
			return fmt.Errorf("group %d: title is required", gi)
		}
		if g.Color == "" {
			g.Color = DefaultGroupColor
		}
		for ti := range g.Tasks {
			t := &g.Tasks[ti]
			if t.Title == "" {
				return fmt.Errorf("group %d task %d: title is required", gi, ti)
			}
			if t.Priority == "" {
				t.Priority = PriorityMedium
			}
			if !ValidPriority(t.Priority) {
				return fmt.Errorf("group %d task %d: invalid priority %q", gi, ti, t.Priority)
			}
			if t.Status == "" {
				t.Status = DefaultTaskStatus
			}
		}
	}
	return nil
}
