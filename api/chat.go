package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/cosmin-sisman/monday-project-generator/domain"
	"github.com/cosmin-sisman/monday-project-generator/reconcile"
	"github.com/cosmin-sisman/monday-project-generator/storage"
)

type chatRequest struct {
	ProjectID string `json:"projectId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Message          string          `json:"message"`
	ActionsPerformed []string        `json:"actions_performed,omitempty"`
	Project          *domain.Project `json:"project,omitempty"`
	Warning          string          `json:"warning,omitempty"`
}

// postChat runs one change-request through the reconciliation protocol:
// snapshot, diff, apply, transcript append. AI or validation failure leaves
// the project untouched.
func postChat(store Store, assistant Assistant, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newChatRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		var req chatRequest
		if decodeErr := decodeBody(c, &req); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.ProjectID == "" || req.Message == "" {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "projectId and message are required")
			return err
		}

		idemKey := c.Request().Header.Get("Idempotency-Key")
		keyRecorded := false
		if deduper != nil && idemKey != "" {
			added, dedupeErr := deduper.Add(ctx, req.ProjectID, idemKey)
			if dedupeErr != nil {
				metrics.SetErrorStage("dedupe")
				c.Logger().Error(dedupeErr)
				err = c.String(http.StatusInternalServerError, "idempotency check failed")
				return err
			}
			if !added {
				metrics.SetErrorStage("dedupe")
				err = c.String(http.StatusConflict, "duplicate change request")
				return err
			}
			keyRecorded = true
		}
		// A failed change-request releases the key so the caller may retry.
		release := func() {
			if !keyRecorded {
				return
			}
			if rerr := deduper.Remove(ctx, req.ProjectID, idemKey); rerr != nil {
				logger.WithError(rerr).Warn("failed to release idempotency key")
			}
		}

		project, loadErr := store.GetProject(ctx, req.ProjectID)
		if loadErr != nil {
			release()
			if errors.Is(loadErr, storage.ErrNotFound) {
				metrics.SetErrorStage("load")
				err = c.String(http.StatusNotFound, "project not found")
				return err
			}
			metrics.SetErrorStage("load")
			c.Logger().Error(loadErr)
			err = c.String(http.StatusInternalServerError, "failed to load project")
			return err
		}

		history, histErr := store.ListConversations(ctx, req.ProjectID)
		if histErr != nil {
			release()
			metrics.SetErrorStage("history")
			c.Logger().Error(histErr)
			err = c.String(http.StatusInternalServerError, "failed to load conversation history")
			return err
		}
		metrics.SetHistoryTurns(len(history))

		aiStart := time.Now()
		reply, aiErr := assistant.Chat(ctx, project, history, req.Message)
		metrics.ObserveAI(time.Since(aiStart))
		if aiErr != nil {
			release()
			metrics.SetErrorStage("ai")
			c.Logger().Error(aiErr)
			err = c.String(http.StatusBadGateway, "assistant request failed")
			return err
		}
		metrics.SetActionsPerformed(len(reply.ActionsPerformed))

		resp := chatResponse{
			Message:          reply.Message,
			ActionsPerformed: reply.ActionsPerformed,
		}

		if reply.UpdatedProject != nil {
			plan, diffErr := reconcile.Diff(project, *reply.UpdatedProject)
			if diffErr != nil {
				release()
				metrics.SetErrorStage("diff")
				err = c.String(http.StatusUnprocessableEntity, diffErr.Error())
				return err
			}

			if !plan.Empty() {
				description := strings.Join(reply.ActionsPerformed, "; ")
				if description == "" {
					description = "AI modification"
				}
				snapStart := time.Now()
				_, snapErr := store.CaptureSnapshot(ctx, project, description, domain.AuthorAssistant)
				metrics.ObserveSnapshot(time.Since(snapStart))
				if snapErr != nil {
					resp.Warning = "failed to save backup version"
					logger.WithError(snapErr).WithField("project_id", req.ProjectID).
						Warn("snapshot capture failed, applying without backup")
				}

				applyStart := time.Now()
				applyErr := store.ApplyPlan(ctx, plan)
				metrics.ObserveApply(time.Since(applyStart))
				if applyErr != nil {
					release()
					if errors.Is(applyErr, storage.ErrVersionConflict) {
						metrics.SetErrorStage("apply")
						err = c.String(http.StatusConflict, "project was modified concurrently, reload and retry")
						return err
					}
					metrics.SetErrorStage("apply")
					c.Logger().Error(applyErr)
					err = c.String(http.StatusInternalServerError, "failed to apply changes")
					return err
				}
				metrics.SetProjectUpdated(true)

				updated, reloadErr := store.GetProject(ctx, req.ProjectID)
				if reloadErr != nil {
					metrics.SetErrorStage("reload")
					c.Logger().Error(reloadErr)
					err = c.String(http.StatusInternalServerError, "failed to load project")
					return err
				}
				resp.Project = &updated
			}
		}

		// Transcript failures do not undo an applied change.
		if convErr := store.AppendConversation(ctx, req.ProjectID, domain.RoleUser, req.Message, nil); convErr != nil {
			logger.WithError(convErr).Warn("failed to record user turn")
		}
		if convErr := store.AppendConversation(ctx, req.ProjectID, domain.RoleAssistant, reply.Message, reply.ActionsPerformed); convErr != nil {
			logger.WithError(convErr).Warn("failed to record assistant turn")
		}

		err = c.JSON(http.StatusOK, resp)
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type conversationsResponse struct {
	Conversations []domain.ConversationTurn `json:"conversations"`
}

func listConversations(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		turns, err := store.ListConversations(c.Request().Context(), c.Param("id"))
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load conversations")
		}
		if turns == nil {
			turns = []domain.ConversationTurn{}
		}
		return c.JSON(http.StatusOK, conversationsResponse{Conversations: turns})
	}
}
