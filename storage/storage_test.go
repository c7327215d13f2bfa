package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProject(t *testing.T, s *Storage) domain.Project {
	t.Helper()
	hours := 8.0
	gen := domain.GeneratedProject{
		Title: "Website Redesign",
		Groups: []domain.GeneratedGroup{
			{
				Title: "Planning", Color: "#579BFC",
				Tasks: []domain.GeneratedTask{
					{Title: "Kickoff", Description: "Initial meeting", Priority: "high", EstimatedHours: &hours},
					{Title: "Requirements", Priority: "medium"},
				},
			},
			{
				Title: "Design", Color: "#FDAB3D",
				Tasks: []domain.GeneratedTask{
					{Title: "Wireframes", Priority: "medium"},
				},
			},
		},
	}
	p, err := s.CreateProject(context.Background(), gen, "redesign our website")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStorage(t)
	p := seedProject(t, s)

	if p.ID == "" {
		t.Fatalf("project id not assigned")
	}
	if p.Status != domain.StatusDraft {
		t.Fatalf("unexpected status %q", p.Status)
	}
	if p.Version != 1 {
		t.Fatalf("new project version should be 1, got %d", p.Version)
	}
	if p.OriginalInput != "redesign our website" {
		t.Fatalf("original input not stored: %q", p.OriginalInput)
	}
	if len(p.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(p.Groups))
	}
	if p.Groups[0].Title != "Planning" || p.Groups[1].Title != "Design" {
		t.Fatalf("group order wrong: %q, %q", p.Groups[0].Title, p.Groups[1].Title)
	}
	if len(p.Groups[0].Tasks) != 2 {
		t.Fatalf("expected 2 tasks in first group, got %d", len(p.Groups[0].Tasks))
	}
	task := p.Groups[0].Tasks[0]
	if task.Title != "Kickoff" || task.Status != domain.DefaultTaskStatus {
		t.Fatalf("unexpected first task: %+v", task)
	}
	if task.EstimatedHours == nil || *task.EstimatedHours != 8.0 {
		t.Fatalf("estimated hours not round-tripped: %+v", task.EstimatedHours)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetProject(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProjectsCounts(t *testing.T) {
	s := newTestStorage(t)
	p := seedProject(t, s)

	list, err := s.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list))
	}
	got := list[0]
	if got.ID != p.ID || got.GroupsCount != 2 || got.TasksCount != 3 {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	s := newTestStorage(t)
	p := seedProject(t, s)
	ctx := context.Background()

	if _, err := s.CaptureSnapshot(ctx, p, "before delete", domain.AuthorSystem); err != nil {
		t.Fatalf("capture snapshot: %v", err)
	}
	if err := s.AppendConversation(ctx, p.ID, domain.RoleUser, "hello", nil); err != nil {
		t.Fatalf("append conversation: %v", err)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("project still readable after delete: %v", err)
	}

	var groups, tasks, versions, turns int
	row := s.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM project_groups),
		(SELECT COUNT(*) FROM project_tasks),
		(SELECT COUNT(*) FROM project_versions),
		(SELECT COUNT(*) FROM ai_conversations)`)
	if err := row.Scan(&groups, &tasks, &versions, &turns); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if groups+tasks+versions+turns != 0 {
		t.Fatalf("cascade incomplete: groups=%d tasks=%d versions=%d turns=%d", groups, tasks, versions, turns)
	}
}

func TestDeleteProjectNotFound(t *testing.T) {
	s := newTestStorage(t)
	if err := s.DeleteProject(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkSyncedAndRefs(t *testing.T) {
	s := newTestStorage(t)
	p := seedProject(t, s)
	ctx := context.Background()

	if err := s.SetGroupBoardRef(ctx, p.Groups[0].ID, "mg-1"); err != nil {
		t.Fatalf("set group ref: %v", err)
	}
	if err := s.SetTaskItemRef(ctx, p.Groups[0].Tasks[0].ID, "mi-1"); err != nil {
		t.Fatalf("set task ref: %v", err)
	}
	if err := s.MarkSynced(ctx, p.ID, "board-9", "ws-4"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Status != domain.StatusSynced || got.MondayBoardID != "board-9" || got.MondayWorkspaceID != "ws-4" {
		t.Fatalf("sync state not persisted: %+v", got)
	}
	if got.Groups[0].MondayGroupID != "mg-1" {
		t.Fatalf("group ref not persisted: %+v", got.Groups[0])
	}
	if got.Groups[0].Tasks[0].MondayItemID != "mi-1" {
		t.Fatalf("task ref not persisted: %+v", got.Groups[0].Tasks[0])
	}
}
