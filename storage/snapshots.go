package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

// DefaultSnapshotListLimit caps the versions listing when the caller does
// not provide a limit.
const DefaultSnapshotListLimit = 10

// CaptureSnapshot appends a full copy of the project's tree to the version
// log. It must be committed before the mutation derived from the same
// change-request is applied, otherwise undo after a partial failure would
// restore an already-mutated state.
func (s *Storage) CaptureSnapshot(ctx context.Context, p domain.Project, changeDescription, createdBy string) (string, error) {
	tree := domain.TreeOf(p)
	data, err := sonic.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO project_versions (id, project_id, snapshot, change_description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.ID, string(data), changeDescription, createdBy, now()); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// ListSnapshots returns snapshot metadata newest-first, capped at limit
// (DefaultSnapshotListLimit when limit <= 0).
func (s *Storage) ListSnapshots(ctx context.Context, projectID string, limit int) ([]domain.SnapshotInfo, error) {
	if limit <= 0 {
		limit = DefaultSnapshotListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, change_description, created_by, created_at
		 FROM project_versions WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("select snapshots: %w", err)
	}
	defer rows.Close()

	out := []domain.SnapshotInfo{}
	for rows.Next() {
		var info domain.SnapshotInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.ChangeDescription, &info.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.CreatedAt = parseTime(createdAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest snapshot for the project, or ErrNotFound
// when the version log is empty.
func (s *Storage) LatestSnapshot(ctx context.Context, projectID string) (domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, snapshot, change_description, created_by, created_at
		 FROM project_versions WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, projectID)
	return scanSnapshot(row)
}

// GetSnapshot loads a snapshot by id, validated against projectID so a
// version from one project can never be restored into another.
func (s *Storage) GetSnapshot(ctx context.Context, snapshotID, projectID string) (domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, snapshot, change_description, created_by, created_at
		 FROM project_versions WHERE id = ? AND project_id = ?`, snapshotID, projectID)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var raw, createdAt string
	err := row.Scan(&snap.ID, &snap.ProjectID, &raw, &snap.ChangeDescription, &snap.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	if err := sonic.Unmarshal([]byte(raw), &snap.Tree); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot tree: %w", err)
	}
	snap.CreatedAt = parseTime(createdAt)
	return snap, nil
}
