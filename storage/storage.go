package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

// ErrNotFound is returned when a project, group, task or snapshot does not
// exist (or belongs to a different project).
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when a reconciliation commit observes a
// project version different from the one read with the current tree.
var ErrVersionConflict = errors.New("project was modified concurrently")

// Storage provides access to the relational backing store. Referential
// integrity (project -> group -> task, cascade on delete) is enforced by the
// schema; the reconciliation protocol relies on it.
type Storage struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and runs the
// schema migration. Use ":memory:" for tests.
func Open(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			original_input TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			monday_board_id TEXT,
			monday_workspace_id TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS project_groups (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '#579BFC',
			position INTEGER NOT NULL DEFAULT 0,
			monday_group_id TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS project_tasks (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL REFERENCES project_groups(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			priority TEXT NOT NULL DEFAULT 'medium',
			estimated_hours REAL,
			position INTEGER NOT NULL DEFAULT 0,
			monday_item_id TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS project_versions (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			snapshot TEXT NOT NULL,
			change_description TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT 'system',
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ai_conversations (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			actions_performed TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_groups_project ON project_groups(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_group ON project_tasks(group_id);`,
		`CREATE INDEX IF NOT EXISTS idx_versions_project ON project_versions(project_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_project ON ai_conversations(project_id, created_at);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const timeLayout = time.RFC3339Nano

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetProject loads a project with its full group/task tree, groups and tasks
// ordered by position then creation time.
func (s *Storage) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	var createdAt, updatedAt string
	var boardID, workspaceID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, original_input, status, monday_board_id, monday_workspace_id, version, created_at, updated_at
		 FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.OriginalInput, &p.Status, &boardID, &workspaceID, &p.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, ErrNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("select project: %w", err)
	}
	p.MondayBoardID = boardID.String
	p.MondayWorkspaceID = workspaceID.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	groups, err := s.loadGroups(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	p.Groups = groups
	return p, nil
}

func (s *Storage) loadGroups(ctx context.Context, projectID string) ([]domain.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, title, color, position, monday_group_id, created_at
		 FROM project_groups WHERE project_id = ? ORDER BY position, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	groups := []domain.Group{}
	index := map[string]int{}
	for rows.Next() {
		var g domain.Group
		var groupRef sql.NullString
		var createdAt string
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.Title, &g.Color, &g.Position, &groupRef, &createdAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.MondayGroupID = groupRef.String
		g.CreatedAt = parseTime(createdAt)
		g.Tasks = []domain.Task{}
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	taskRows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.group_id, t.title, t.description, t.status, t.priority, t.estimated_hours, t.position, t.monday_item_id, t.created_at
		 FROM project_tasks t
		 JOIN project_groups g ON t.group_id = g.id
		 WHERE g.project_id = ? ORDER BY t.position, t.created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer taskRows.Close()

	for taskRows.Next() {
		var t domain.Task
		var description, itemRef sql.NullString
		var hours sql.NullFloat64
		var createdAt string
		if err := taskRows.Scan(&t.ID, &t.GroupID, &t.Title, &description, &t.Status, &t.Priority, &hours, &t.Position, &itemRef, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Description = description.String
		t.MondayItemID = itemRef.String
		if hours.Valid {
			v := hours.Float64
			t.EstimatedHours = &v
		}
		t.CreatedAt = parseTime(createdAt)
		if i, ok := index[t.GroupID]; ok {
			groups[i].Tasks = append(groups[i].Tasks, t)
		}
	}
	return groups, taskRows.Err()
}

// ListProjects returns all projects newest-updated first with group and task
// counts.
func (s *Storage) ListProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.status, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM project_groups g WHERE g.project_id = p.id),
			(SELECT COUNT(*) FROM project_tasks t JOIN project_groups g ON t.group_id = g.id WHERE g.project_id = p.id)
		 FROM projects p ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	defer rows.Close()

	out := []domain.ProjectSummary{}
	for rows.Next() {
		var ps domain.ProjectSummary
		var createdAt, updatedAt string
		if err := rows.Scan(&ps.ID, &ps.Title, &ps.Status, &createdAt, &updatedAt, &ps.GroupsCount, &ps.TasksCount); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		ps.CreatedAt = parseTime(createdAt)
		ps.UpdatedAt = parseTime(updatedAt)
		out = append(out, ps)
	}
	return out, rows.Err()
}

// CreateProject persists a generated structure as a new draft project,
// positions assigned by list index.
func (s *Storage) CreateProject(ctx context.Context, gen domain.GeneratedProject, originalInput string) (domain.Project, error) {
	projectID := uuid.NewString()
	ts := now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, title, original_input, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		projectID, gen.Title, originalInput, domain.StatusDraft, ts, ts); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}

	for gi, g := range gen.Groups {
		groupID := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_groups (id, project_id, title, color, position, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			groupID, projectID, g.Title, g.Color, gi, ts); err != nil {
			return domain.Project{}, fmt.Errorf("insert group: %w", err)
		}
		for ti, t := range g.Tasks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO project_tasks (id, group_id, title, description, status, priority, estimated_hours, position, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), groupID, t.Title, t.Description, domain.DefaultTaskStatus, t.Priority, t.EstimatedHours, ti, ts); err != nil {
				return domain.Project{}, fmt.Errorf("insert task: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Project{}, fmt.Errorf("commit: %w", err)
	}
	return s.GetProject(ctx, projectID)
}

// DeleteProject hard-deletes a project; groups, tasks, snapshots and
// conversation turns go with it via cascade.
func (s *Storage) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSynced records the board references produced by an external sync and
// moves the project to the synced status. The reconciler itself never
// transitions status.
func (s *Storage) MarkSynced(ctx context.Context, projectID, boardID, workspaceID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, monday_board_id = ?, monday_workspace_id = ?, updated_at = ? WHERE id = ?`,
		domain.StatusSynced, boardID, workspaceID, now(), projectID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetGroupBoardRef stores the external group identifier assigned by the
// board service.
func (s *Storage) SetGroupBoardRef(ctx context.Context, groupID, mondayGroupID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE project_groups SET monday_group_id = ? WHERE id = ?`, mondayGroupID, groupID)
	return err
}

// SetTaskItemRef stores the external item identifier assigned by the board
// service.
func (s *Storage) SetTaskItemRef(ctx context.Context, taskID, mondayItemID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE project_tasks SET monday_item_id = ? WHERE id = ?`, mondayItemID, taskID)
	return err
}
