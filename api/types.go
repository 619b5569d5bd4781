package api

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"taskflow/domain"
	"taskflow/query"
)

// Store abstracts persistence for handlers and the mutation coordinator.
type Store interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	FindUser(ctx context.Context, id string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUsers(ctx context.Context, plan query.Plan) ([]domain.User, int64, error)
	UpdateUser(ctx context.Context, id string, fields bson.M) (domain.User, error)

	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	FindProject(ctx context.Context, id string) (domain.Project, error)
	FindProjects(ctx context.Context, plan query.Plan) ([]domain.Project, int64, error)
	UpdateProject(ctx context.Context, id string, fields bson.M) (domain.Project, error)
	ReplaceProjectMembers(ctx context.Context, id string, members []domain.Member) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ExpandProject(ctx context.Context, p *domain.Project) error

	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	FindTask(ctx context.Context, id string) (domain.Task, error)
	FindTasks(ctx context.Context, plan query.Plan) ([]domain.Task, int64, error)
	UpdateTask(ctx context.Context, id string, fields bson.M) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ExpandTasks(ctx context.Context, tasks []domain.Task) error

	CreateComment(ctx context.Context, c domain.Comment) (domain.Comment, error)
	FindComment(ctx context.Context, id string) (domain.Comment, error)
	FindComments(ctx context.Context, plan query.Plan) ([]domain.Comment, int64, error)
	UpdateComment(ctx context.Context, id string, fields bson.M) (domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ExpandComments(ctx context.Context, comments []domain.Comment) error
}

// Publisher delivers a named event to a project channel's subscribers. The
// concrete transport is wired in at process start.
type Publisher interface {
	Publish(ctx context.Context, projectID, event string, payload any) error
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
