package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cosmin-sisman/monday-project-generator/extract"
	"github.com/cosmin-sisman/monday-project-generator/monday"
	"github.com/cosmin-sisman/monday-project-generator/storage"
)

func postParseFile() echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.String(http.StatusBadRequest, "file is required")
		}
		src, err := fh.Open()
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to read file")
		}
		defer src.Close()

		result, err := extract.FromFile(fh.Filename, src)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupported) {
				return c.String(http.StatusUnsupportedMediaType, err.Error())
			}
			return c.String(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, result)
	}
}

type workspacesResponse struct {
	Workspaces []monday.Workspace `json:"workspaces"`
}

func listWorkspaces(boards BoardClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		workspaces, err := boards.Workspaces(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusBadGateway, "failed to list workspaces")
		}
		if workspaces == nil {
			workspaces = []monday.Workspace{}
		}
		return c.JSON(http.StatusOK, workspacesResponse{Workspaces: workspaces})
	}
}

type boardsResponse struct {
	Boards []monday.Board `json:"boards"`
}

func listBoards(boards BoardClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		workspaceID := c.QueryParam("workspaceId")
		if workspaceID == "" {
			return c.String(http.StatusBadRequest, "workspaceId is required")
		}
		list, err := boards.Boards(c.Request().Context(), workspaceID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusBadGateway, "failed to list boards")
		}
		if list == nil {
			list = []monday.Board{}
		}
		return c.JSON(http.StatusOK, boardsResponse{Boards: list})
	}
}

type syncRequest struct {
	ProjectID    string `json:"projectId"`
	WorkspaceID  string `json:"workspaceId"`
	BoardID      string `json:"boardId"`
	NewBoardName string `json:"newBoardName"`
}

type syncResponse struct {
	Success      bool   `json:"success"`
	BoardID      string `json:"board_id"`
	GroupsSynced int    `json:"groups_synced"`
	TasksSynced  int    `json:"tasks_synced"`
}

// postSync pushes the project tree to the board service, one way. External
// identifiers are persisted per entity as they are created, so a failed sync
// leaves the completed part recorded and can be re-run.
func postSync(store Store, boards BoardClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req syncRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.ProjectID == "" || req.WorkspaceID == "" {
			return c.String(http.StatusBadRequest, "projectId and workspaceId are required")
		}

		project, err := store.GetProject(ctx, req.ProjectID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "project not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load project")
		}

		boardID := req.BoardID
		if boardID == "" {
			name := strings.TrimSpace(req.NewBoardName)
			if name == "" {
				name = project.Title
			}
			board, err := boards.CreateBoard(ctx, name, req.WorkspaceID)
			if err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusBadGateway, "failed to create board")
			}
			boardID = board.ID
		}

		groupsSynced := 0
		tasksSynced := 0
		for _, g := range project.Groups {
			created, err := boards.CreateGroup(ctx, boardID, g.Title, g.Color)
			if err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusBadGateway, "failed to create board group")
			}
			if err := store.SetGroupBoardRef(ctx, g.ID, created.ID); err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, "failed to record board group")
			}
			groupsSynced++

			for _, t := range g.Tasks {
				item, err := boards.CreateItem(ctx, boardID, created.ID, t.Title)
				if err != nil {
					c.Logger().Error(err)
					return c.String(http.StatusBadGateway, "failed to create board item")
				}
				if err := store.SetTaskItemRef(ctx, t.ID, item.ID); err != nil {
					c.Logger().Error(err)
					return c.String(http.StatusInternalServerError, "failed to record board item")
				}
				tasksSynced++
			}
		}

		if err := store.MarkSynced(ctx, req.ProjectID, boardID, req.WorkspaceID); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to mark project synced")
		}

		return c.JSON(http.StatusOK, syncResponse{
			Success:      true,
			BoardID:      boardID,
			GroupsSynced: groupsSynced,
			TasksSynced:  tasksSynced,
		})
	}
}
