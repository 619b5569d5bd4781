package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow/query"
)

func getProjects(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newListRequestMetrics(logger, "projects")
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
		metrics.SetFilterKeys(len(plan.Filter))

		fetchStart := time.Now()
		projects, total, fetchErr := store.FindProjects(c.Request().Context(), plan)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondError(c, logger, fetchErr)
			return err
		}
		metrics.SetRecordsFound(len(projects))

		expandStart := time.Now()
		for i := range projects {
			if expandErr := store.ExpandProject(c.Request().Context(), &projects[i]); expandErr != nil {
				logger.WithError(expandErr).Warn("project expansion failed")
				break
			}
		}
		metrics.ObserveExpand(time.Since(expandStart))

		err = respondList(c, plan, len(projects), total, projects)
		return err
	}
}

func getProject(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := resolvePrincipal(c, store, auth); err != nil {
			return respondError(c, logger, err)
		}
		project, err := store.FindProject(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		if err := store.ExpandProject(c.Request().Context(), &project); err != nil {
			logger.WithError(err).Warn("project expansion failed")
		}
		return respondData(c, http.StatusOK, project)
	}
}

func postProject(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in projectCreatePayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		project, err := coord.CreateProject(c.Request().Context(), principal, in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusCreated, project)
	}
}

func putProject(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in projectUpdatePayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		project, err := coord.UpdateProject(c.Request().Context(), principal, c.Param("id"), in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, project)
	}
}

func deleteProject(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		if err := coord.DeleteProject(c.Request().Context(), principal, c.Param("id")); err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, struct{}{})
	}
}

func postProjectMember(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in memberAddPayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		project, err := coord.AddMember(c.Request().Context(), principal, c.Param("id"), in)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, project)
	}
}

func deleteProjectMember(store Store, auth Authenticator, coord *Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		project, err := coord.RemoveMember(c.Request().Context(), principal, c.Param("id"), c.Param("userId"))
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, project)
	}
}
