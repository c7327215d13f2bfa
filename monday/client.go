// Package monday is a minimal client for the monday.com GraphQL API used by
// the one-way board sync. Nothing it creates is consumed back into the
// reconciliation model.
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
)

const (
	// DefaultBaseURL is the production GraphQL endpoint.
	DefaultBaseURL = "https://api.monday.com/v2"
	apiVersion     = "2024-10"
)

// ErrNoToken is returned when the client is used without a configured token.
var ErrNoToken = errors.New("monday API token is not configured")

// Client issues GraphQL requests against the monday.com API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// New creates a client with the given API token. An empty baseURL falls
// back to the production endpoint.
func New(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Workspace is a monday.com workspace.
type Workspace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default_workspace,omitempty"`
}

// Board is a monday.com board.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group is a board section created by the sync.
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Item is a board item created by the sync.
type Item struct {
	ID string `json:"id"`
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func (c *Client) request(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.token == "" {
		return ErrNoToken
	}

	body, err := sonic.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("API-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("monday API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read monday response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("monday API request failed: %s", resp.Status)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := sonic.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode monday response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("monday API error: %s", envelope.Errors[0].Message)
	}
	if out != nil {
		if err := sonic.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode monday data: %w", err)
		}
	}
	return nil
}

// Workspaces lists all workspaces visible to the token.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	const query = `query { workspaces { id name is_default_workspace } }`
	var data struct {
		Workspaces []Workspace `json:"workspaces"`
	}
	if err := c.request(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	return data.Workspaces, nil
}

// Boards lists boards in a workspace.
func (c *Client) Boards(ctx context.Context, workspaceID string) ([]Board, error) {
	const query = `query ($workspaceIds: [ID!]) { boards(workspace_ids: $workspaceIds, limit: 100) { id name } }`
	var data struct {
		Boards []Board `json:"boards"`
	}
	err := c.request(ctx, query, map[string]any{"workspaceIds": []string{workspaceID}}, &data)
	if err != nil {
		return nil, err
	}
	return data.Boards, nil
}

// CreateBoard creates an empty public board in the workspace.
func (c *Client) CreateBoard(ctx context.Context, name, workspaceID string) (Board, error) {
	const query = `mutation ($boardName: String!, $workspaceId: ID!, $boardKind: BoardKind!) {
		create_board(board_name: $boardName, workspace_id: $workspaceId, board_kind: $boardKind, empty: true) { id name }
	}`
	wid, err := strconv.Atoi(workspaceID)
	if err != nil {
		return Board{}, fmt.Errorf("invalid workspace id %q", workspaceID)
	}
	var data struct {
		CreateBoard Board `json:"create_board"`
	}
	err = c.request(ctx, query, map[string]any{
		"boardName":   name,
		"workspaceId": wid,
		"boardKind":   "public",
	}, &data)
	if err != nil {
		return Board{}, err
	}
	return data.CreateBoard, nil
}

// CreateGroup creates a board group with the given color.
func (c *Client) CreateGroup(ctx context.Context, boardID, title, color string) (Group, error) {
	const query = `mutation ($boardId: ID!, $groupName: String!, $groupColor: String) {
		create_group(board_id: $boardId, group_name: $groupName, group_color: $groupColor) { id title }
	}`
	bid, err := strconv.Atoi(boardID)
	if err != nil {
		return Group{}, fmt.Errorf("invalid board id %q", boardID)
	}
	var data struct {
		CreateGroup Group `json:"create_group"`
	}
	err = c.request(ctx, query, map[string]any{
		"boardId":    bid,
		"groupName":  title,
		"groupColor": color,
	}, &data)
	if err != nil {
		return Group{}, err
	}
	return data.CreateGroup, nil
}

// CreateItem creates an item inside a board group.
func (c *Client) CreateItem(ctx context.Context, boardID, groupID, title string) (Item, error) {
	const query = `mutation ($boardId: ID!, $groupId: String!, $itemName: String!) {
		create_item(board_id: $boardId, group_id: $groupId, item_name: $itemName) { id }
	}`
	bid, err := strconv.Atoi(boardID)
	if err != nil {
		return Item{}, fmt.Errorf("invalid board id %q", boardID)
	}
	var data struct {
		CreateItem Item `json:"create_item"`
	}
	err = c.request(ctx, query, map[string]any{
		"boardId":  bid,
		"groupId":  groupID,
		"itemName": title,
	}, &data)
	if err != nil {
		return Item{}, err
	}
	return data.CreateItem, nil
}
