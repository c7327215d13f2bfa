package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cosmin-sisman/monday-project-generator/domain"
	"github.com/cosmin-sisman/monday-project-generator/storage"
)

type versionsResponse struct {
	Versions  []domain.SnapshotInfo `json:"versions"`
	HasBackup bool                  `json:"has_backup"`
}

func listVersions(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		versions, err := store.ListSnapshots(c.Request().Context(), c.Param("id"), storage.DefaultSnapshotListLimit)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load versions")
		}
		if versions == nil {
			versions = []domain.SnapshotInfo{}
		}
		return c.JSON(http.StatusOK, versionsResponse{Versions: versions, HasBackup: len(versions) > 0})
	}
}

type restoreResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	RestoredAt time.Time `json:"restored_at"`
	Warning    string    `json:"warning,omitempty"`
}

// postUndo consumes the newest snapshot: the tree is replaced and the
// snapshot deleted in the same transaction, so consecutive undos step
// backward through the version log.
func postUndo(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		snap, err := store.LatestSnapshot(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "no backup version found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load backup version")
		}

		if err := store.RestoreTree(ctx, id, snap.Tree, snap.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "project not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to restore project")
		}

		return c.JSON(http.StatusOK, restoreResponse{
			Success:    true,
			Message:    "Project restored to previous version",
			RestoredAt: snap.CreatedAt,
		})
	}
}

type restoreRequest struct {
	VersionID string `json:"versionId"`
}

// postRestore rolls back to a chosen version. The current state is snapshot
// first so the restore itself can be undone.
func postRestore(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		var req restoreRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.VersionID == "" {
			return c.String(http.StatusBadRequest, "versionId is required")
		}

		snap, err := store.GetSnapshot(ctx, req.VersionID, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "version not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load version")
		}

		current, err := store.GetProject(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "project not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load project")
		}

		warning := ""
		if _, serr := store.CaptureSnapshot(ctx, current, "Backup before restore", domain.AuthorSystem); serr != nil {
			warning = "failed to save backup version"
			c.Logger().Warnf("pre-restore snapshot failed for project %s: %v", id, serr)
		}

		if err := store.RestoreTree(ctx, id, snap.Tree, ""); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to restore project")
		}

		return c.JSON(http.StatusOK, restoreResponse{
			Success:    true,
			Message:    "Project restored to selected version",
			RestoredAt: snap.CreatedAt,
			Warning:    warning,
		})
	}
}
