package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

// Tx groups the mutations of one change-request into a single database
// transaction. A failure anywhere rolls the whole reconciliation back, so a
// partial AI response or a mid-sequence error never leaves a mixed tree.
type Tx struct {
	tx *sql.Tx
}

// Mutate runs fn inside a transaction and commits if fn returns nil.
func (s *Storage) Mutate(ctx context.Context, fn func(tx *Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Tx{tx: dbTx}); err != nil {
		_ = dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateProjectTitle sets the project title and refreshes updated_at.
func (t *Tx) UpdateProjectTitle(ctx context.Context, projectID, title string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE projects SET title = ?, updated_at = ? WHERE id = ?`, title, now(), projectID)
	if err != nil {
		return fmt.Errorf("update project title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CommitProjectVersion bumps the optimistic version counter. The update is
// conditioned on the version still matching the value read together with the
// current tree; a concurrent edit in between makes it fail with
// ErrVersionConflict and the surrounding transaction rolls back.
func (t *Tx) CommitProjectVersion(ctx context.Context, projectID string, expected int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE projects SET version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		now(), projectID, expected)
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// UpdateGroup overwrites an existing group's editable fields.
func (t *Tx) UpdateGroup(ctx context.Context, groupID string, g domain.ProposedGroup) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE project_groups SET title = ?, color = ?, position = ? WHERE id = ?`,
		g.Title, g.Color, g.Position, groupID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertGroup creates a group and returns its newly assigned identifier,
// which task inserts for the same group depend on.
func (t *Tx) InsertGroup(ctx context.Context, projectID string, g domain.ProposedGroup) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO project_groups (id, project_id, title, color, position, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, projectID, g.Title, g.Color, g.Position, now())
	if err != nil {
		return "", fmt.Errorf("insert group: %w", err)
	}
	return id, nil
}

// UpdateTask overwrites an existing task's editable fields.
func (t *Tx) UpdateTask(ctx context.Context, taskID string, task domain.ProposedTask) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE project_tasks SET title = ?, description = ?, priority = ?, estimated_hours = ?, position = ?, status = ? WHERE id = ?`,
		task.Title, task.Description, task.Priority, task.EstimatedHours, task.Position, task.Status, taskID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertTask creates a task under groupID at the given position.
func (t *Tx) InsertTask(ctx context.Context, groupID string, task domain.ProposedTask, position int) (string, error) {
	id := uuid.NewString()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO project_tasks (id, group_id, title, description, status, priority, estimated_hours, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, groupID, task.Title, task.Description, task.Status, task.Priority, task.EstimatedHours, position, now())
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

// DeleteGroups removes the given groups; their tasks cascade away.
func (t *Tx) DeleteGroups(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM project_groups WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete group %s: %w", id, err)
		}
	}
	return nil
}

// DeleteTasks removes tasks explicitly dropped from retained groups.
func (t *Tx) DeleteTasks(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM project_tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
	}
	return nil
}

// ReplaceTree swaps a project's whole structure for the snapshot tree: the
// title is restored, all current groups are deleted (tasks cascade) and the
// snapshot's groups and tasks are re-inserted with fresh identifiers. Used by
// undo and restore, which are full replacements rather than diffs.
func (t *Tx) ReplaceTree(ctx context.Context, projectID string, tree domain.SnapshotTree) error {
	if err := t.UpdateProjectTitle(ctx, projectID, tree.Title); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM project_groups WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	ts := now()
	for _, g := range tree.Groups {
		groupID := uuid.NewString()
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO project_groups (id, project_id, title, color, position, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			groupID, projectID, g.Title, g.Color, g.Position, ts); err != nil {
			return fmt.Errorf("restore group: %w", err)
		}
		for _, task := range g.Tasks {
			if _, err := t.tx.ExecContext(ctx,
				`INSERT INTO project_tasks (id, group_id, title, description, status, priority, estimated_hours, position, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), groupID, task.Title, task.Description, task.Status, task.Priority, task.EstimatedHours, task.Position, ts); err != nil {
				return fmt.Errorf("restore task: %w", err)
			}
		}
	}
	return nil
}

// DeleteSnapshot removes a consumed snapshot inside the same transaction as
// the tree replacement, so repeated undo steps backward through history.
func (t *Tx) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM project_versions WHERE id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
