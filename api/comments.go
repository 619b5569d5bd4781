package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow/domain"
	"taskflow/query"
)

func getComments(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newListRequestMetrics(logger, "comments")
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := resolvePrincipal(c, store, auth)
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = respondError(c, logger, authErr)
			return err
		}

		plan, planErr := query.Build(c.QueryParams())
		if planErr != nil {
			metrics.SetErrorStage("query")
			err = respondError(c, logger, planErr)
			return err
		}
		// Nested listing: /tasks/:id/comments pins the task filter.
		if taskID := c.Param("id"); taskID != "" {
			plan.Filter["taskId"] = []query.Condition{{Op: query.Equals, Value: taskID}}
		}
		metrics.SetFilterKeys(len(plan.Filter))

		fetchStart := time.Now()
		comments, total, fetchErr := store.FindComments(c.Request().Context(), plan)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondError(c, logger, fetchErr)
			return err
		}
		metrics.SetRecordsFound(len(comments))

		expandStart := time.Now()
		if expandErr := store.ExpandComments(c.Request().Context(), comments); expandErr != nil {
			logger.WithError(expandErr).Warn("comment expansion failed")
		}
		metrics.ObserveExpand(time.Since(expandStart))

		err = respondList(c, plan, len(comments), total, comments)
		return err
	}
}

func getComment(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := resolvePrincipal(c, store, auth); err != nil {
			return respondError(c, logger, err)
		}
		comment, err := store.FindComment(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		comments := []domain.Comment{comment}
		if err := store.ExpandComments(c.Request().Context(), comments); err != nil {
			logger.WithError(err).Warn("comment expansion failed")
		}
		return respondData(c, http.StatusOK, comments[0])
	}
}

func postComment(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in commentCreatePayload
		if err := decodeBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		// The nested route form supplies the task in the path.
		if taskID := c.Param("id"); taskID != "" {
			in.TaskID = taskID
		}
		if err := checkPayload(&in); err != nil {
			return respondError(c, logger, err)
		}
		comment, err := coord.CreateComment(c.Request().Context(), principal, in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusCreated, comment)
	}
}

func putComment(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in commentUpdatePayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		comment, err := coord.UpdateComment(c.Request().Context(), principal, c.Param("id"), in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, comment)
	}
}

func deleteComment(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		if err := coord.DeleteComment(c.Request().Context(), principal, c.Param("id")); err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, struct{}{})
	}
}
