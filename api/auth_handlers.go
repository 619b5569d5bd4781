package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"taskflow/domain"
)

// resolvePrincipal authenticates the request and loads the acting user.
// Any failure along the way collapses to invalid credentials so callers
// learn nothing about which step rejected them.
func resolvePrincipal(c echo.Context, store Store, auth Authenticator) (domain.Principal, error) {
	userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
	if err != nil {
		return domain.Principal{}, domain.ErrInvalidCredentials
	}
	user, err := store.FindUser(c.Request().Context(), userID)
	if err != nil {
		return domain.Principal{}, domain.ErrInvalidCredentials
	}
	return domain.Principal{ID: user.ID, Role: user.Role}, nil
}

func register(store Store, auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in registerPayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return respondError(c, logger, err)
		}
		role := in.Role
		if role == "" {
			role = domain.RoleMember
		}
		user, err := store.CreateUser(c.Request().Context(), domain.User{
			Name:     in.Name,
			Email:    in.Email,
			Password: string(hash),
			Role:     role,
		})
		if err != nil {
			return respondError(c, logger, err)
		}
		token, err := auth.SignToken(user.ID)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondToken(c, http.StatusCreated, token, user)
	}
}

func login(store Store, auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in loginPayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		user, err := store.FindUserByEmail(c.Request().Context(), in.Email)
		if err != nil {
			// A missing account and a wrong password are indistinguishable.
			return respondError(c, logger, domain.ErrInvalidCredentials)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
			return respondError(c, logger, domain.ErrInvalidCredentials)
		}
		token, err := auth.SignToken(user.ID)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondToken(c, http.StatusOK, token, user)
	}
}

func getProfile(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		user, err := store.FindUser(c.Request().Context(), principal.ID)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, user)
	}
}

func putProfile(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in profilePayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		user, err := store.UpdateUser(c.Request().Context(), principal.ID, in.fields())
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondData(c, http.StatusOK, user)
	}
}

func updatePassword(store Store, auth *Auth, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, err := resolvePrincipal(c, store, auth)
		if err != nil {
			return respondError(c, logger, err)
		}
		var in passwordPayload
		if err := bindBody(c, &in); err != nil {
			return respondError(c, logger, err)
		}
		user, err := store.FindUser(c.Request().Context(), principal.ID)
		if err != nil {
			return respondError(c, logger, err)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)) != nil {
			return respondError(c, logger, domain.ErrInvalidCredentials)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return respondError(c, logger, err)
		}
		if _, err := store.UpdateUser(c.Request().Context(), principal.ID, map[string]any{"password": string(hash)}); err != nil {
			return respondError(c, logger, err)
		}
		token, err := auth.SignToken(user.ID)
		if err != nil {
			return respondError(c, logger, err)
		}
		return respondToken(c, http.StatusOK, token, nil)
	}
}
