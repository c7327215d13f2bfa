package domain

import (
	"errors"
	"fmt"
)

// GeneratedProject is the structure the assistant returns when creating a
// board from a free-text description. Unlike a proposal it carries no
// identifiers; everything in it is new.
type GeneratedProject struct {
	Title  string           `json:"title"`
	Groups []GeneratedGroup `json:"groups"`
}

// GeneratedGroup is a generated board section.
type GeneratedGroup struct {
	Title string          `json:"title"`
	Color string          `json:"color"`
	Tasks []GeneratedTask `json:"tasks"`
}

// GeneratedTask is a generated board item.
type GeneratedTask struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours"`
}

var errEmptyGeneratedTitle = errors.New("generated project title is required")

// Validate enforces the generation schema: non-empty titles, known
// priorities, defaulted colors. A generation that fails here fails the whole
// change-request with nothing persisted.
func (g *GeneratedProject) Validate() error {
	if g.Title == "" {
		return errEmptyGeneratedTitle
	}
	for gi := range g.Groups {
		grp := &g.Groups[gi]
		if grp.Title == "" {
			return fmt.Errorf("group %d: title is required", gi)
		}
		if grp.Color == "" {
			grp.Color = DefaultGroupColor
		}
		for ti := range grp.Tasks {
			t := &grp.Tasks[ti]
			if t.Title == "" {
				return fmt.Errorf("group %d task %d: title is required", gi, ti)
			}
			if !ValidPriority(t.Priority) {
				return fmt.Errorf("group %d task %d: invalid priority %q", gi, ti, t.Priority)
			}
		}
	}
	return nil
}
