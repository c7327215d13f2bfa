package reconcile

import (
	"context"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

// Persistence is the narrow mutation surface the reconciler drives. The
// storage package implements it on a transaction, so a failed step rolls
// back every preceding one.
type Persistence interface {
	UpdateProjectTitle(ctx context.Context, projectID, title string) error
	UpdateGroup(ctx context.Context, groupID string, g domain.ProposedGroup) error
	InsertGroup(ctx context.Context, projectID string, g domain.ProposedGroup) (string, error)
	UpdateTask(ctx context.Context, taskID string, t domain.ProposedTask) error
	InsertTask(ctx context.Context, groupID string, t domain.ProposedTask, position int) (string, error)
	DeleteGroups(ctx context.Context, ids []string) error
	DeleteTasks(ctx context.Context, ids []string) error
	CommitProjectVersion(ctx context.Context, projectID string, expected int64) error
}

// Apply executes the plan in a fixed order: title, retained-group updates
// (task updates before task inserts), new groups (group insert before its
// task inserts, since the tasks reference the assigned identifier), group
// deletes, task deletes, and finally the conditional version bump. Any
// failure aborts immediately; atomicity comes from the transaction behind p.
func Apply(ctx context.Context, p Persistence, plan Plan) error {
	if plan.TitleChanged {
		if err := p.UpdateProjectTitle(ctx, plan.ProjectID, plan.Title); err != nil {
			return err
		}
	}

	for _, gu := range plan.GroupUpdates {
		if err := p.UpdateGroup(ctx, gu.ID, gu.Group); err != nil {
			return err
		}
		for _, tu := range gu.TaskUpdates {
			if err := p.UpdateTask(ctx, tu.ID, tu.Task); err != nil {
				return err
			}
		}
		for _, ti := range gu.TaskInserts {
			if _, err := p.InsertTask(ctx, gu.ID, ti.Task, ti.Position); err != nil {
				return err
			}
		}
	}

	for _, gi := range plan.GroupInserts {
		groupID, err := p.InsertGroup(ctx, plan.ProjectID, gi.Group)
		if err != nil {
			return err
		}
		for _, ti := range gi.Tasks {
			if _, err := p.InsertTask(ctx, groupID, ti.Task, ti.Position); err != nil {
				return err
			}
		}
	}

	if len(plan.GroupDeletes) > 0 {
		if err := p.DeleteGroups(ctx, plan.GroupDeletes); err != nil {
			return err
		}
	}
	if len(plan.TaskDeletes) > 0 {
		if err := p.DeleteTasks(ctx, plan.TaskDeletes); err != nil {
			return err
		}
	}

	return p.CommitProjectVersion(ctx, plan.ProjectID, plan.BaseVersion)
}
