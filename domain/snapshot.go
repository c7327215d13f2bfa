package domain

import "time"

// Snapshot authors recorded in the version log.
const (
	AuthorAssistant = "ai_assistant"
	AuthorSystem    = "system"
	AuthorUser      = "user"
)

// SnapshotTree is the full copied structure a snapshot preserves: the title
// plus every group and task. Identifiers inside the tree are informational
// only; restore assigns fresh ones.
type SnapshotTree struct {
	Title  string  `json:"title"`
	Groups []Group `json:"groups"`
}

// Snapshot is one immutable entry in a project's append-only version log.
type Snapshot struct {
	ID                string       `json:"id"`
	ProjectID         string       `json:"project_id"`
	Tree              SnapshotTree `json:"snapshot"`
	ChangeDescription string       `json:"change_description"`
	CreatedBy         string       `json:"created_by"`
	CreatedAt         time.Time    `json:"created_at"`
}

// SnapshotInfo is the metadata-only shape returned by the versions listing.
type SnapshotInfo struct {
	ID                string    `json:"id"`
	ChangeDescription string    `json:"change_description"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

// TreeOf copies a project's title and full group/task structure into a
// snapshot tree.
func TreeOf(p Project) SnapshotTree {
	groups := make([]Group, len(p.Groups))
	for i, g := range p.Groups {
		cg := g
		cg.Tasks = append([]Task(nil), g.Tasks...)
		groups[i] = cg
	}
	return SnapshotTree{Title: p.Title, Groups: groups}
}
