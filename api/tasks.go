package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow/domain"
	"taskflow/query"
)

func getTasks(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newListRequestMetrics(logger, "tasks")
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
		// Nested listing: /projects/:id/tasks pins the project filter.
		if projectID := c.Param("id"); projectID != "" {
			plan.Filter["projectId"] = []query.Condition{{Op: query.Equals, Value: projectID}}
		}
		metrics.SetFilterKeys(len(plan.Filter))

		fetchStart := time.Now()
		tasks, total, fetchErr := store.FindTasks(c.Request().Context(), plan)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondError(c, logger, fetchErr)
			return err
		}
		metrics.SetRecordsFound(len(tasks))

		expandStart := time.Now()
		if expandErr := store.ExpandTasks(c.Request().Context(), tasks); expandErr != nil {
			logger.WithError(expandErr).Warn("task expansion failed")
		}
		metrics.ObserveExpand(time.Since(expandStart))

		err = respondList(c, plan, len(tasks), total, tasks)
		return err
	}
}

func getTask(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := resolvePrincipal(c, store, auth); err != nil {
			return respondError(c, logger, err)
		}
		task, err := store.FindTask(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		tasks := []domain.Task{task}
		if err := store.ExpandTasks(c.Request().Context(), tasks); err != nil {
			logger.WithError(err).Warn("task expansion failed")
		}
		return respondData(c, http.StatusOK, tasks[0])
	}
}

func postTask(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in taskCreatePayload
		if err := decodeBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		// The nested route form supplies the project in the path.
		if projectID := c.Param("id"); projectID != "" {
			in.ProjectID = projectID
		}
		if err := checkPayload(&in); err != nil {
			return respondError(c, logger, err)
		}
		task, err := coord.CreateTask(c.Request().Context(), principal, in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusCreated, task)
	}
}

func putTask(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in taskUpdatePayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		task, err := coord.UpdateTask(c.Request().Context(), principal, c.Param("id"), in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, task)
	}
}

func putTaskStatus(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in taskStatusPayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		task, err := coord.UpdateTaskStatus(c.Request().Context(), principal, c.Param("id"), in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, task)
	}
}

func deleteTask(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		if err := coord.DeleteTask(c.Request().Context(), principal, c.Param("id")); err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, struct{}{})
	}
}
