package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow/query"
)

func getUsers(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newListRequestMetrics(logger, "users")
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
		users, total, fetchErr := store.FindUsers(c.Request().Context(), plan)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondError(c, logger, fetchErr)
			return err
		}
		metrics.SetRecordsFound(len(users))

		err = respondList(c, plan, len(users), total, users)
		return err
	}
}

func getUser(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := resolvePrincipal(c, store, auth); err != nil {
			return respondError(c, logger, err)
		}
		user, err := store.FindUser(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, user)
	}
}
