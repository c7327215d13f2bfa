package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/cosmin-sisman/monday-project-generator/domain"
	"github.com/cosmin-sisman/monday-project-generator/reconcile"
	"github.com/cosmin-sisman/monday-project-generator/storage"
)

const requestMaxSize = 1 << 20 // 1 MiB

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, assistant Assistant, boards BoardClient, deduper Deduper, logger *log.Logger) {
	e.GET("/healthz", healthz())

	e.POST("/api/generate", postGenerate(store, assistant))
	e.GET("/api/projects", listProjects(store))
	e.GET("/api/projects/:id", getProject(store))
	e.PUT("/api/projects/:id", putProject(store))
	e.DELETE("/api/projects/:id", deleteProject(store))

	e.POST("/api/chat", postChat(store, assistant, deduper, logger))
	e.GET("/api/projects/:id/conversations", listConversations(store))

	e.GET("/api/projects/:id/versions", listVersions(store))
	e.POST("/api/projects/:id/undo", postUndo(store))
	e.POST("/api/projects/:id/restore", postRestore(store))

	e.POST("/api/parse-file", postParseFile())
	e.GET("/api/monday/workspaces", listWorkspaces(boards))
	e.GET("/api/monday/boards", listBoards(boards))
	e.POST("/api/monday/sync", postSync(store, boards))
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(out)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

type generateRequest struct {
	Input string `json:"input"`
}

// projectResponse wraps a full tree. Warning is set when the change applied
// but an auxiliary step (snapshot capture) failed.
type projectResponse struct {
	Project domain.Project `json:"project"`
	Warning string         `json:"warning,omitempty"`
}

func postGenerate(store Store, assistant Assistant) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req generateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		input := strings.TrimSpace(req.Input)
		if input == "" {
			return c.String(http.StatusBadRequest, "input is required")
		}

		gen, err := assistant.GenerateProject(ctx, input)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusBadGateway, "project generation failed")
		}

		project, err := store.CreateProject(ctx, gen, input)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to save project")
		}
		return c.JSON(http.StatusCreated, projectResponse{Project: project})
	}
}

type projectListResponse struct {
	Projects []domain.ProjectSummary `json:"projects"`
}

func listProjects(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := store.ListProjects(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to list projects")
		}
		if projects == nil {
			projects = []domain.ProjectSummary{}
		}
		return c.JSON(http.StatusOK, projectListResponse{Projects: projects})
	}
}

func getProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		project, err := store.GetProject(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "project not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load project")
		}
		return c.JSON(http.StatusOK, projectResponse{Project: project})
	}
}

// updateProjectRequest is a partial edit: nil fields keep the current value.
// A present but empty groups array deletes every group.
type updateProjectRequest struct {
	Title  *string                 `json:"title"`
	Groups *[]domain.ProposedGroup `json:"groups"`
}

func putProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		var req updateProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		project, err := store.GetProject(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "project not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load project")
		}

		proposal := domain.ProposalOf(project)
		if req.Title != nil {
			proposal.Title = strings.TrimSpace(*req.Title)
		}
		if req.Groups != nil {
			proposal.Groups = *req.Groups
		}
		if err := proposal.Validate(); err != nil {
			return c.String(http.StatusUnprocessableEntity, err.Error())
		}

		plan, err := reconcile.Diff(project, proposal)
		if err != nil {
			return c.String(http.StatusUnprocessableEntity, err.Error())
		}
		if plan.Empty() {
			return c.JSON(http.StatusOK, projectResponse{Project: project})
		}

		warning := ""
		if _, serr := store.CaptureSnapshot(ctx, project, "Manual edit", domain.AuthorUser); serr != nil {
			warning = "failed to save backup version"
			c.Logger().Warnf("snapshot capture failed for project %s: %v", id, serr)
		}

		if err := store.ApplyPlan(ctx, plan); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				return c.String(http.StatusConflict, "project was modified concurrently, reload and retry")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to update project")
		}

		updated, err := store.GetProject(ctx, id)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load project")
		}
		return c.JSON(http.StatusOK, projectResponse{Project: updated, Warning: warning})
	}
}

func deleteProject(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := store.DeleteProject(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "project not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to delete project")
		}
		return c.NoContent(http.StatusNoContent)
	}
}
