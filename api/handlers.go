package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow/realtime"
)

// Register wires up all API routes on the provided Echo instance. The
// prometheus middleware is installed by the caller; it registers global
// collectors and must only be set up once per process.
func Register(e *echo.Echo, store Store, auth *Auth, coord *Coordinator, hub *realtime.Hub, logger *log.Logger) {
	e.GET("/healthz", healthz())

	e.POST("/api/auth/register", register(store, auth, logger))
	e.POST("/api/auth/login", login(store, auth, logger))
	e.GET("/api/auth/profile", getProfile(store, auth, logger))
	e.PUT("/api/auth/profile", putProfile(store, auth, logger))
	e.PUT("/api/auth/updatepassword", updatePassword(store, auth, logger))

	e.GET("/api/users", getUsers(store, auth, logger))
	e.GET("/api/users/:id", getUser(store, auth, logger))

	e.GET("/api/projects", getProjects(store, auth, logger))
	e.POST("/api/projects", postProject(store, auth, coord, logger))
	e.GET("/api/projects/:id", getProject(store, auth, logger))
	e.PUT("/api/projects/:id", putProject(store, auth, coord, logger))
	e.DELETE("/api/projects/:id", deleteProject(store, auth, coord, logger))
	e.POST("/api/projects/:id/members", postProjectMember(store, auth, coord, logger))
	e.DELETE("/api/projects/:id/members/:userId", deleteProjectMember(store, auth, coord, logger))
	e.GET("/api/projects/:id/tasks", getTasks(store, auth, logger))
	e.POST("/api/projects/:id/tasks", postTask(store, auth, coord, logger))

	e.GET("/api/tasks", getTasks(store, auth, logger))
	e.POST("/api/tasks", postTask(store, auth, coord, logger))
	e.GET("/api/tasks/:id", getTask(store, auth, logger))
	e.PUT("/api/tasks/:id", putTask(store, auth, coord, logger))
	e.PUT("/api/tasks/:id/status", putTaskStatus(store, auth, coord, logger))
	e.DELETE("/api/tasks/:id", deleteTask(store, auth, coord, logger))
	e.GET("/api/tasks/:id/comments", getComments(store, auth, logger))
	e.POST("/api/tasks/:id/comments", postComment(store, auth, coord, logger))

	e.GET("/api/comments", getComments(store, auth, logger))
	e.POST("/api/comments", postComment(store, auth, coord, logger))
	e.GET("/api/comments/:id", getComment(store, auth, logger))
	e.PUT("/api/comments/:id", putComment(store, auth, coord, logger))
	e.DELETE("/api/comments/:id", deleteComment(store, auth, coord, logger))

	e.GET("/ws", realtime.Handler(hub, auth, logger))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}
