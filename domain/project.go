package domain

import "time"

// Project statuses. Synced is set by the board-sync path only; the
// reconciler never changes status.
const (
	StatusDraft     = "draft"
	StatusValidated = "validated"
	StatusSynced    = "synced"
)

// Task priorities accepted on the wire.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultTaskStatus is assigned when a proposal omits a task status.
const DefaultTaskStatus = "pending"

// DefaultGroupColor matches the color the generator falls back to.
const DefaultGroupColor = "#579BFC"

// Project is the authoritative board structure: an ordered set of groups,
// each owning an ordered set of tasks.
type Project struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	OriginalInput      string    `json:"original_input"`
	Status             string    `json:"status"`
	MondayBoardID      string    `json:"monday_board_id,omitempty"`
	MondayWorkspaceID  string    `json:"monday_workspace_id,omitempty"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Groups             []Group   `json:"groups"`
}

// Group is a board section owning tasks. Position defines display order;
// gaps and duplicates are tolerated.
type Group struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Title         string    `json:"title"`
	Color         string    `json:"color"`
	Position      int       `json:"position"`
	MondayGroupID string    `json:"monday_group_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Tasks         []Task    `json:"tasks"`
}

// Task is a single board item.
type Task struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	EstimatedHours *float64  `json:"estimated_hours,omitempty"`
	Position       int       `json:"position"`
	MondayItemID   string    `json:"monday_item_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProjectSummary is the list-view shape: no tree, only counts.
type ProjectSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	GroupsCount int       `json:"groups_count"`
	TasksCount  int       `json:"tasks_count"`
}

// ValidPriority reports whether p is one of the accepted priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known project status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusValidated, StatusSynced:
		return true
	}
	return false
}
