package api

import (
	"context"

	"github.com/cosmin-sisman/monday-project-generator/ai"
	"github.com/cosmin-sisman/monday-project-generator/domain"
	"github.com/cosmin-sisman/monday-project-generator/monday"
	"github.com/cosmin-sisman/monday-project-generator/reconcile"
)

// Store abstracts persistence for handlers.
type Store interface {
	GetProject(ctx context.Context, id string) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.ProjectSummary, error)
	CreateProject(ctx context.Context, gen domain.GeneratedProject, originalInput string) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// ApplyPlan runs the reconciler inside one transaction; a failed step
	// rolls back the whole plan.
	ApplyPlan(ctx context.Context, plan reconcile.Plan) error
	// RestoreTree replaces a project's full tree from a snapshot, deleting
	// the snapshot in the same transaction when consumeSnapshotID is set.
	RestoreTree(ctx context.Context, projectID string, tree domain.SnapshotTree, consumeSnapshotID string) error

	CaptureSnapshot(ctx context.Context, p domain.Project, changeDescription, createdBy string) (string, error)
	ListSnapshots(ctx context.Context, projectID string, limit int) ([]domain.SnapshotInfo, error)
	LatestSnapshot(ctx context.Context, projectID string) (domain.Snapshot, error)
	GetSnapshot(ctx context.Context, snapshotID, projectID string) (domain.Snapshot, error)

	AppendConversation(ctx context.Context, projectID, role, content string, actions []string) error
	ListConversations(ctx context.Context, projectID string) ([]domain.ConversationTurn, error)

	MarkSynced(ctx context.Context, projectID, boardID, workspaceID string) error
	SetGroupBoardRef(ctx context.Context, groupID, mondayGroupID string) error
	SetTaskItemRef(ctx context.Context, taskID, mondayItemID string) error
}

// Assistant generates board structures from free text and answers
// conversational edit requests.
type Assistant interface {
	GenerateProject(ctx context.Context, input string) (domain.GeneratedProject, error)
	Chat(ctx context.Context, project domain.Project, history []domain.ConversationTurn, message string) (ai.ChatReply, error)
}

// BoardClient pushes project structures to the external board service.
type BoardClient interface {
	Workspaces(ctx context.Context) ([]monday.Workspace, error)
	Boards(ctx context.Context, workspaceID string) ([]monday.Board, error)
	CreateBoard(ctx context.Context, name, workspaceID string) (monday.Board, error)
	CreateGroup(ctx context.Context, boardID, title, color string) (monday.Group, error)
	CreateItem(ctx context.Context, boardID, groupID, title string) (monday.Item, error)
}

// Deduper prevents replaying the same change-request.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, projectID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, projectID, key string) error
}
