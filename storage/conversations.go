package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/cosmin-sisman/monday-project-generator/domain"
)

// AppendConversation records one immutable transcript turn. No size cap is
// enforced on the log.
func (s *Storage) AppendConversation(ctx context.Context, projectID, role, content string, actions []string) error {
	var encoded sql.NullString
	if len(actions) > 0 {
		data, err := sonic.Marshal(actions)
		if err != nil {
			return fmt.Errorf("encode actions: %w", err)
		}
		encoded = sql.NullString{String: string(data), Valid: true}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_conversations (id, project_id, role, content, actions_performed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), projectID, role, content, encoded, now()); err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}

// ListConversations returns the transcript ascending by creation time, the
// order both the UI and the assistant context expect.
func (s *Storage) ListConversations(ctx context.Context, projectID string) ([]domain.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, role, content, actions_performed, created_at
		 FROM ai_conversations WHERE project_id = ?
		 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select conversations: %w", err)
	}
	defer rows.Close()

	out := []domain.ConversationTurn{}
	for rows.Next() {
		var turn domain.ConversationTurn
		var actions sql.NullString
		var createdAt string
		if err := rows.Scan(&turn.ID, &turn.ProjectID, &turn.Role, &turn.Content, &actions, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		if actions.Valid {
			if err := sonic.Unmarshal([]byte(actions.String), &turn.ActionsPerformed); err != nil {
				return nil, fmt.Errorf("decode actions: %w", err)
			}
		}
		turn.CreatedAt = parseTime(createdAt)
		out = append(out, turn)
	}
	return out, rows.Err()
}
