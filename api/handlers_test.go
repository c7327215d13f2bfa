package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/cosmin-sisman/monday-project-generator/ai"
	"github.com/cosmin-sisman/monday-project-generator/domain"
	"github.com/cosmin-sisman/monday-project-generator/monday"
	"github.com/cosmin-sisman/monday-project-generator/reconcile"
	"github.com/cosmin-sisman/monday-project-generator/storage"
)

// mockStore records every mutation so tests can assert both what happened
// and, just as important, what did not.
type mockStore struct {
	projects map[string]domain.Project
	listErr  error

	created *domain.Project

	applied  []reconcile.Plan
	applyErr error

	snapshots   []string
	snapshotErr error

	restored        []domain.SnapshotTree
	consumedIDs     []string
	latestSnapshot  *domain.Snapshot
	storedSnapshot  *domain.Snapshot
	versions        []domain.SnapshotInfo
	conversations   []domain.ConversationTurn
	appendedTurns   []domain.ConversationTurn
	deleted         []string
	syncedBoardID   string
	syncedWorkspace string
	groupRefs       map[string]string
	taskRefs        map[string]string
}

func newMockStore(projects ...domain.Project) *mockStore {
	m := &mockStore{
		projects:  map[string]domain.Project{},
		groupRefs: map[string]string{},
		taskRefs:  map[string]string{},
	}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *mockStore) GetProject(_ context.Context, id string) (domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return domain.Project{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) ListProjects(_ context.Context) ([]domain.ProjectSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.ProjectSummary{}
	for _, p := range m.projects {
		out = append(out, domain.ProjectSummary{ID: p.ID, Title: p.Title, Status: p.Status})
	}
	return out, nil
}

func (m *mockStore) CreateProject(_ context.Context, gen domain.GeneratedProject, originalInput string) (domain.Project, error) {
	p := domain.Project{ID: "new-project", Title: gen.Title, OriginalInput: originalInput, Status: domain.StatusDraft, Version: 1}
	m.created = &p
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockStore) DeleteProject(_ context.Context, id string) error {
	if _, ok := m.projects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.projects, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStore) ApplyPlan(_ context.Context, plan reconcile.Plan) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, plan)
	return nil
}

func (m *mockStore) RestoreTree(_ context.Context, projectID string, tree domain.SnapshotTree, consumeSnapshotID string) error {
	if _, ok := m.projects[projectID]; !ok {
		return storage.ErrNotFound
	}
	m.restored = append(m.restored, tree)
	if consumeSnapshotID != "" {
		m.consumedIDs = append(m.consumedIDs, consumeSnapshotID)
	}
	return nil
}

func (m *mockStore) CaptureSnapshot(_ context.Context, _ domain.Project, changeDescription, createdBy string) (string, error) {
	if m.snapshotErr != nil {
		return "", m.snapshotErr
	}
	m.snapshots = append(m.snapshots, createdBy+":"+changeDescription)
	return "snap-1", nil
}

func (m *mockStore) ListSnapshots(_ context.Context, _ string, _ int) ([]domain.SnapshotInfo, error) {
	return m.versions, nil
}

func (m *mockStore) LatestSnapshot(_ context.Context, _ string) (domain.Snapshot, error) {
	if m.latestSnapshot == nil {
		return domain.Snapshot{}, storage.ErrNotFound
	}
	return *m.latestSnapshot, nil
}

func (m *mockStore) GetSnapshot(_ context.Context, snapshotID, projectID string) (domain.Snapshot, error) {
	if m.storedSnapshot == nil || m.storedSnapshot.ID != snapshotID || m.storedSnapshot.ProjectID != projectID {
		return domain.Snapshot{}, storage.ErrNotFound
	}
	return *m.storedSnapshot, nil
}

func (m *mockStore) AppendConversation(_ context.Context, projectID, role, content string, actions []string) error {
	m.appendedTurns = append(m.appendedTurns, domain.ConversationTurn{
		ProjectID: projectID, Role: role, Content: content, ActionsPerformed: actions,
	})
	return nil
}

func (m *mockStore) ListConversations(_ context.Context, _ string) ([]domain.ConversationTurn, error) {
	return m.conversations, nil
}

func (m *mockStore) MarkSynced(_ context.Context, projectID, boardID, workspaceID string) error {
	if _, ok := m.projects[projectID]; !ok {
		return storage.ErrNotFound
	}
	m.syncedBoardID = boardID
	m.syncedWorkspace = workspaceID
	return nil
}

func (m *mockStore) SetGroupBoardRef(_ context.Context, groupID, mondayGroupID string) error {
	m.groupRefs[groupID] = mondayGroupID
	return nil
}

func (m *mockStore) SetTaskItemRef(_ context.Context, taskID, mondayItemID string) error {
	m.taskRefs[taskID] = mondayItemID
	return nil
}

// mutationCount sums every write the store saw.
func (m *mockStore) mutationCount() int {
	n := len(m.applied) + len(m.snapshots) + len(m.restored) + len(m.appendedTurns) + len(m.deleted)
	if m.created != nil {
		n++
	}
	return n
}

type mockAssistant struct {
	generateFn func(ctx context.Context, input string) (domain.GeneratedProject, error)
	chatFn     func(ctx context.Context, project domain.Project, history []domain.ConversationTurn, message string) (ai.ChatReply, error)
	calls      int
}

func (m *mockAssistant) GenerateProject(ctx context.Context, input string) (domain.GeneratedProject, error) {
	m.calls++
	if m.generateFn == nil {
		return domain.GeneratedProject{}, errors.New("unexpected GenerateProject call")
	}
	return m.generateFn(ctx, input)
}

func (m *mockAssistant) Chat(ctx context.Context, project domain.Project, history []domain.ConversationTurn, message string) (ai.ChatReply, error) {
	m.calls++
	if m.chatFn == nil {
		return ai.ChatReply{}, errors.New("unexpected Chat call")
	}
	return m.chatFn(ctx, project, history, message)
}

type mockBoards struct {
	boards        []monday.Board
	boardsErr     error
	createdBoards []string
	createdGroups []string
	createdItems  []string
	groupErr      error
}

func (m *mockBoards) Workspaces(_ context.Context) ([]monday.Workspace, error) {
	return []monday.Workspace{{ID: "1", Name: "Main"}}, nil
}

func (m *mockBoards) Boards(_ context.Context, _ string) ([]monday.Board, error) {
	return m.boards, m.boardsErr
}

func (m *mockBoards) CreateBoard(_ context.Context, name, _ string) (monday.Board, error) {
	m.createdBoards = append(m.createdBoards, name)
	return monday.Board{ID: "board-1", Name: name}, nil
}

func (m *mockBoards) CreateGroup(_ context.Context, _, title, _ string) (monday.Group, error) {
	if m.groupErr != nil {
		return monday.Group{}, m.groupErr
	}
	m.createdGroups = append(m.createdGroups, title)
	return monday.Group{ID: "mg-" + title, Title: title}, nil
}

func (m *mockBoards) CreateItem(_ context.Context, _, groupID, title string) (monday.Item, error) {
	m.createdItems = append(m.createdItems, groupID+"/"+title)
	return monday.Item{ID: "mi-" + title}, nil
}

func testProject() domain.Project {
	return domain.Project{
		ID:      "p1",
		Title:   "Website Redesign",
		Status:  domain.StatusDraft,
		Version: 3,
		Groups: []domain.Group{
			{
				ID: "g1", ProjectID: "p1", Title: "Planning", Color: "#579BFC",
				Tasks: []domain.Task{
					{ID: "t1", GroupID: "g1", Title: "Kickoff", Priority: "high", Status: "pending"},
				},
			},
			{
				ID: "g2", ProjectID: "p1", Title: "Design", Color: "#FDAB3D", Position: 1,
				Tasks: []domain.Task{
					{ID: "t2", GroupID: "g2", Title: "Wireframes", Priority: "medium", Status: "pending"},
				},
			},
		},
	}
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := sonic.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestPostGenerate(t *testing.T) {
	store := newMockStore()
	assistant := &mockAssistant{
		generateFn: func(_ context.Context, input string) (domain.GeneratedProject, error) {
			if input != "build a web shop" {
				t.Fatalf("input not forwarded: %q", input)
			}
			return domain.GeneratedProject{Title: "Web Shop"}, nil
		},
	}

	c, rec := newTestContext(http.MethodPost, "/api/generate", `{"input": "  build a web shop  "}`)
	if err := postGenerate(store, assistant)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp projectResponse
	decodeJSON(t, rec, &resp)
	if resp.Project.Title != "Web Shop" {
		t.Fatalf("unexpected project: %+v", resp.Project)
	}
	if store.created == nil || store.created.OriginalInput != "build a web shop" {
		t.Fatalf("original input not persisted: %+v", store.created)
	}
}

func TestPostGenerateEmptyInput(t *testing.T) {
	store := newMockStore()
	assistant := &mockAssistant{}

	c, rec := newTestContext(http.MethodPost, "/api/generate", `{"input": "   "}`)
	if err := postGenerate(store, assistant)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if assistant.calls != 0 {
		t.Fatalf("assistant called for empty input")
	}
}

func TestPostGenerateAssistantFailureWritesNothing(t *testing.T) {
	store := newMockStore()
	assistant := &mockAssistant{
		generateFn: func(context.Context, string) (domain.GeneratedProject, error) {
			return domain.GeneratedProject{}, errors.New("upstream down")
		},
	}

	c, rec := newTestContext(http.MethodPost, "/api/generate", `{"input": "anything"}`)
	if err := postGenerate(store, assistant)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d", rec.Code)
	}
	if store.mutationCount() != 0 {
		t.Fatalf("generation failure still wrote to the store")
	}
}

func TestGetProjectNotFound(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/api/projects/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	if err := getProject(newMockStore())(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestListProjects(t *testing.T) {
	store := newMockStore(testProject())
	c, rec := newTestContext(http.MethodGet, "/api/projects", "")
	if err := listProjects(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var resp projectListResponse
	decodeJSON(t, rec, &resp)
	if len(resp.Projects) != 1 || resp.Projects[0].ID != "p1" {
		t.Fatalf("unexpected list: %+v", resp.Projects)
	}
}

func TestPutProjectTitleOnlyKeepsGroups(t *testing.T) {
	store := newMockStore(testProject())
	c, rec := newTestContext(http.MethodPut, "/api/projects/p1", `{"title": "Website Relaunch"}`)
	c.SetParamNames("id")
	c.SetParamValues("p1")
	if err := putProject(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.applied) != 1 {
		t.Fatalf("expected 1 applied plan, got %d", len(store.applied))
	}
	plan := store.applied[0]
	if !plan.TitleChanged || plan.Title != "Website Relaunch" {
		t.Fatalf("title change missing: %+v", plan)
	}
	if len(plan.GroupDeletes) != 0 || len(plan.TaskDeletes) != 0 {
		t.Fatalf("title-only edit deleted entities: %+v", plan)
	}
	if len(store.snapshots) != 1 || store.snapshots[0] != domain.AuthorUser+":Manual edit" {
		t.Fatalf("manual edit snapshot missing: %v", store.snapshots)
	}
}

func TestPutProjectEmptyPlanSkipsSnapshotAndApply(t *testing.T) {
	// A groupless project with an unchanged title diffs to an empty plan.
	store := newMockStore(domain.Project{ID: "p1", Title: "Bare", Version: 1})
	c, rec := newTestContext(http.MethodPut, "/api/projects/p1", `{"title": "Bare"}`)
	c.SetParamNames("id")
	c.SetParamValues("p1")
	if err := putProject(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if store.mutationCount() != 0 {
		t.Fatalf("no-op edit still wrote to the store")
	}
}

func TestPutProjectUnknownGroupRejected(t *testing.T) {
	store := newMockStore(testProject())
	body := `{"groups": [{"id": "nope", "title": "X", "tasks": []}]}`
	c, rec := newTestContext(http.MethodPut, "/api/projects/p1", body)
	c.SetParamNames("id")
	c.SetParamValues("p1")
	if err := putProject(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if store.mutationCount() != 0 {
		t.Fatalf("rejected proposal still wrote to the store")
	}
}

func TestPutProjectVersionConflict(t *testing.T) {
	store := newMockStore(testProject())
	store.applyErr = storage.ErrVersionConflict
	c, rec := newTestContext(http.MethodPut, "/api/projects/p1", `{"title": "New"}`)
	c.SetParamNames("id")
	c.SetParamValues("p1")
	if err := putProject(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestDeleteProject(t *testing.T) {
	store := newMockStore(testProject())
	c, rec := newTestContext(http.MethodDelete, "/api/projects/p1", "")
	c.SetParamNames("id")
	c.SetParamValues("p1")
	if err := deleteProject(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "p1" {
		t.Fatalf("delete not recorded: %v", store.deleted)
	}

	c, rec = newTestContext(http.MethodDelete, "/api/projects/p1", "")
	c.SetParamNames("id")
	c.SetParamValues("p1")
	if err := deleteProject(store)(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", rec.Code)
	}
}
