// Package reconcile merges an externally proposed project tree into the
// authoritative store. The differ computes the delta between the current
// persisted tree and the proposal; the reconciler applies it in a fixed
// order through a transactional persistence interface.
package reconcile

import (
	"fmt"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

// Plan is the computed delta between the current tree and a proposal.
// Matching is done exclusively by identifier: a nil proposed ID always means
// create-new, and a current entity absent from the proposal's identified set
// is implicitly deleted.
type Plan struct {
	ProjectID   string
	BaseVersion int64

	Title        string
	TitleChanged bool

	GroupUpdates []GroupUpdate
	GroupInserts []GroupInsert
	GroupDeletes []string
	TaskDeletes  []string
}

// GroupUpdate is a retained group together with the task delta inside it.
type GroupUpdate struct {
	ID          string
	Group       domain.ProposedGroup
	TaskUpdates []TaskUpdate
	TaskInserts []TaskInsert
}

// GroupInsert is a brand-new group and all of its tasks, which can only be
// inserted once the group's identifier has been assigned.
type GroupInsert struct {
	Group domain.ProposedGroup
	Tasks []TaskInsert
}

// TaskUpdate targets an existing task by identifier.
type TaskUpdate struct {
	ID   string
	Task domain.ProposedTask
}

// TaskInsert is a new task with its resolved position.
type TaskInsert struct {
	Task     domain.ProposedTask
	Position int
}

// Empty reports whether applying the plan would change nothing. Group and
// task updates always count as changes since the proposal may alter any
// field.
func (p Plan) Empty() bool {
	return !p.TitleChanged &&
		len(p.GroupUpdates) == 0 &&
		len(p.GroupInserts) == 0 &&
		len(p.GroupDeletes) == 0 &&
		len(p.TaskDeletes) == 0
}

// Diff computes the plan transforming current toward proposed.
//
// Proposed entities carrying an identifier that does not exist in the
// current tree are rejected before anything is applied; accepting them would
// either update a foreign project's rows or silently lose the entity.
func Diff(current domain.Project, proposed domain.ProposedProject) (Plan, error) {
	plan := Plan{
		ProjectID:   current.ID,
		BaseVersion: current.Version,
		Title:       proposed.Title,
	}
	if proposed.Title != "" && proposed.Title != current.Title {
		plan.TitleChanged = true
	}

	currentGroups := make(map[string]domain.Group, len(current.Groups))
	for _, g := range current.Groups {
		currentGroups[g.ID] = g
	}

	proposedGroupIDs := make(map[string]bool, len(proposed.Groups))
	for _, pg := range proposed.Groups {
		if pg.ID == nil {
			insert := GroupInsert{Group: pg}
			for ti, pt := range pg.Tasks {
				if pt.ID != nil {
					return Plan{}, fmt.Errorf("task %q carries id %s but its group is new", pt.Title, *pt.ID)
				}
				insert.Tasks = append(insert.Tasks, TaskInsert{Task: pt, Position: taskPosition(pt, ti)})
			}
			plan.GroupInserts = append(plan.GroupInserts, insert)
			continue
		}

		cg, ok := currentGroups[*pg.ID]
		if !ok {
			return Plan{}, fmt.Errorf("unknown group id %s", *pg.ID)
		}
		if proposedGroupIDs[*pg.ID] {
			return Plan{}, fmt.Errorf("group id %s proposed twice", *pg.ID)
		}
		proposedGroupIDs[*pg.ID] = true

		update := GroupUpdate{ID: *pg.ID, Group: pg}
		currentTasks := make(map[string]bool, len(cg.Tasks))
		for _, t := range cg.Tasks {
			currentTasks[t.ID] = true
		}
		proposedTaskIDs := make(map[string]bool, len(pg.Tasks))
		for ti, pt := range pg.Tasks {
			if pt.ID == nil {
				update.TaskInserts = append(update.TaskInserts, TaskInsert{Task: pt, Position: taskPosition(pt, ti)})
				continue
			}
			if !currentTasks[*pt.ID] {
				return Plan{}, fmt.Errorf("unknown task id %s in group %s", *pt.ID, *pg.ID)
			}
			if proposedTaskIDs[*pt.ID] {
				return Plan{}, fmt.Errorf("task id %s proposed twice", *pt.ID)
			}
			proposedTaskIDs[*pt.ID] = true
			update.TaskUpdates = append(update.TaskUpdates, TaskUpdate{ID: *pt.ID, Task: pt})
		}

		// Implicit delete: tasks of a retained group omitted from the
		// proposal's identified set are dropped.
		for _, t := range cg.Tasks {
			if !proposedTaskIDs[t.ID] {
				plan.TaskDeletes = append(plan.TaskDeletes, t.ID)
			}
		}
		plan.GroupUpdates = append(plan.GroupUpdates, update)
	}

	// Implicit delete for groups. Tasks of a deleted group are never diffed
	// individually; the cascade removes them.
	for _, g := range current.Groups {
		if !proposedGroupIDs[g.ID] {
			plan.GroupDeletes = append(plan.GroupDeletes, g.ID)
		}
	}

	return plan, nil
}

// taskPosition resolves an insert position: the explicit value when set,
// else the task's index within its proposed list.
func taskPosition(t domain.ProposedTask, index int) int {
	if t.Position != 0 {
		return t.Position
	}
	return index
}
