package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow/domain"
	"taskflow/query"
)

// envelope is the uniform response body for every endpoint.
type envelope struct {
	Success    bool        `json:"success"`
	Token      string      `json:"token,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type pageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type pagination struct {
	Next     *pageRef `json:"next,omitempty"`
	Previous *pageRef `json:"previous,omitempty"`
}

// paginationFor computes the next/previous hints from the plan and the
// filtered total.
func paginationFor(plan query.Plan, total int64) *pagination {
	p := &pagination{}
	if int64(plan.Page*plan.Limit) < total {
		p.Next = &pageRef{Page: plan.Page + 1, Limit: plan.Limit}
	}
	if plan.Skip() > 0 {
		p.Previous = &pageRef{Page: plan.Page - 1, Limit: plan.Limit}
	}
	if p.Next == nil && p.Previous == nil {
		return nil
	}
	return p
}

func respondData(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func respondList(c echo.Context, plan query.Plan, count int, total int64, data any) error {
	return c.JSON(http.StatusOK, envelope{
		Success:    true,
		Count:      &count,
		Pagination: paginationFor(plan, total),
		Data:       data,
	})
}

func respondToken(c echo.Context, status int, token string, data any) error {
	return c.JSON(status, envelope{Success: true, Token: token, Data: data})
}

// respondError is the single boundary translator from the error taxonomy to
// HTTP statuses. Policy denials surface as 401, matching the credential
// failure status, so callers cannot probe resource existence.
func respondError(c echo.Context, logger *log.Logger, err error) error {
	status := http.StatusInternalServerError

	var nf domain.NotFoundError
	var ve domain.ValidationError
	var ce domain.ConflictError
	var iq domain.InvalidQueryError
	switch {
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.As(err, &ve), errors.As(err, &ce), errors.As(err, &iq):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthorized), errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	default:
		logger.WithError(err).Error("request failed")
		return c.JSON(status, envelope{Success: false, Error: "internal server error"})
	}

	return c.JSON(status, envelope{Success: false, Error: err.Error()})
}
