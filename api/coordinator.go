package api

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"taskflow/domain"
	"taskflow/policy"
)

// Event names published to a project's channel.
const (
	EventProjectUpdated    = "projectUpdated"
	EventProjectDeleted    = "projectDeleted"
	EventMemberAdded       = "memberAdded"
	EventMemberRemoved     = "memberRemoved"
	EventTaskCreated       = "taskCreated"
	EventTaskUpdated       = "taskUpdated"
	EventTaskDeleted       = "taskDeleted"
	EventTaskStatusUpdated = "taskStatusUpdated"
	EventCommentCreated    = "commentCreated"
	EventCommentUpdated    = "commentUpdated"
	EventCommentDeleted    = "commentDeleted"
)

// Coordinator is the single choke point for every mutating request. Each
// operation follows the same protocol: confirm existence, resolve the owning
// project, apply policy, persist, then publish to the project's channel.
// Existence is always checked before authorization so a denial never reveals
// whether a resource exists.
type Coordinator struct {
	store  Store
	pub    Publisher
	logger *log.Logger
}

// NewCoordinator wires the coordinator's dependencies. The publisher is
// handed in explicitly; it is never looked up from ambient state.
func NewCoordinator(store Store, pub Publisher, logger *log.Logger) *Coordinator {
	return &Coordinator{store: store, pub: pub, logger: logger}
}

// publish fans the event out after the store write has committed. Failures
// are logged and swallowed: fan-out is best-effort and must never affect the
// already-persisted mutation or the client-visible result.
func (co *Coordinator) publish(projectID, event string, payload any) {
	if co.pub == nil || projectID == "" {
		return
	}
	if err := co.pub.Publish(context.Background(), projectID, event, payload); err != nil {
		co.logger.WithFields(log.Fields{
			"project": projectID,
			"event":   event,
		}).WithError(err).Warn("event publish failed")
	}
}

// CreateProject persists a new project with the principal as its immutable
// owner.
func (co *Coordinator) CreateProject(ctx context.Context, p domain.Principal, in projectCreatePayload) (domain.Project, error) {
	status := in.Status
	if status == "" {
		status = domain.ProjectPlanning
	}
	project := domain.Project{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     p.ID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      status,
	}
	// No publish: a channel cannot have subscribers before its project
	// exists.
	return co.store.CreateProject(ctx, project)
}

// UpdateProject applies field updates after the owner/admin policy check.
func (co *Coordinator) UpdateProject(ctx context.Context, p domain.Principal, id string, in projectUpdatePayload) (domain.Project, error) {
	project, err := co.store.FindProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if !policy.Authorize(p, policy.ActionUpdate, policy.ProjectResource{Project: project}) {
		return domain.Project{}, domain.ErrNotAuthorized
	}
	updated, err := co.store.UpdateProject(ctx, id, in.fields())
	if err != nil {
		return domain.Project{}, err
	}
	co.publish(updated.ID, EventProjectUpdated, updated)
	return updated, nil
}

// DeleteProject removes a project after the owner/admin policy check.
func (co *Coordinator) DeleteProject(ctx context.Context, p domain.Principal, id string) error {
	project, err := co.store.FindProject(ctx, id)
	if err != nil {
		return err
	}
	if !policy.Authorize(p, policy.ActionDelete, policy.ProjectResource{Project: project}) {
		return domain.ErrNotAuthorized
	}
	if err := co.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	co.publish(project.ID, EventProjectDeleted, map[string]string{"id": project.ID})
	return nil
}

// AddMember appends a member to the project's membership list. Duplicate
// members are rejected.
func (co *Coordinator) AddMember(ctx context.Context, p domain.Principal, id string, in memberAddPayload) (domain.Project, error) {
	project, err := co.store.FindProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if !policy.Authorize(p, policy.ActionAddMember, policy.ProjectResource{Project: project}) {
		return domain.Project{}, domain.ErrNotAuthorized
	}
	if project.HasMember(in.UserID) {
		return domain.Project{}, domain.ConflictError{Message: "user " + in.UserID + " is already a member of this project"}
	}
	role := in.Role
	if role == "" {
		role = domain.RoleMember
	}
	members := append(project.Members, domain.Member{UserID: in.UserID, Role: role})
	updated, err := co.store.ReplaceProjectMembers(ctx, id, members)
	if err != nil {
		return domain.Project{}, err
	}
	co.publish(updated.ID, EventMemberAdded, updated)
	return updated, nil
}

// RemoveMember drops a member from the project's membership list. Removing
// a non-member is rejected.
func (co *Coordinator) RemoveMember(ctx context.Context, p domain.Principal, id, userID string) (domain.Project, error) {
	project, err := co.store.FindProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if !policy.Authorize(p, policy.ActionRemoveMember, policy.ProjectResource{Project: project}) {
		return domain.Project{}, domain.ErrNotAuthorized
	}
	if !project.HasMember(userID) {
		return domain.Project{}, domain.ConflictError{Message: "user " + userID + " is not a member of this project"}
	}
	members := make([]domain.Member, 0, len(project.Members))
	for _, m := range project.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	updated, err := co.store.ReplaceProjectMembers(ctx, id, members)
	if err != nil {
		return domain.Project{}, err
	}
	co.publish(updated.ID, EventMemberRemoved, updated)
	return updated, nil
}

// CreateTask persists a new task after verifying the parent project exists.
// The principal becomes the immutable creator.
func (co *Coordinator) CreateTask(ctx context.Context, p domain.Principal, in taskCreatePayload) (domain.Task, error) {
	project, err := co.store.FindProject(ctx, in.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	status := in.Status
	if status == "" {
		status = domain.TaskTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	task := domain.Task{
		Title:       in.Title,
		Description: in.Description,
		ProjectID:   project.ID,
		AssigneeID:  in.AssigneeID,
		CreatedByID: p.ID,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
	}
	created, err := co.store.CreateTask(ctx, task)
	if err != nil {
		return domain.Task{}, err
	}
	co.publish(project.ID, EventTaskCreated, created)
	return created, nil
}

// resolveTaskWithProject loads the task and its owning project for the
// policy check. A dangling project reference is reported as the project
// being absent.
func (co *Coordinator) resolveTaskWithProject(ctx context.Context, id string) (domain.Task, domain.Project, error) {
	task, err := co.store.FindTask(ctx, id)
	if err != nil {
		return domain.Task{}, domain.Project{}, err
	}
	project, err := co.store.FindProject(ctx, task.ProjectID)
	if err != nil {
		return domain.Task{}, domain.Project{}, err
	}
	return task, project, nil
}

// UpdateTask applies field updates after the creator/project-owner/admin
// policy check.
func (co *Coordinator) UpdateTask(ctx context.Context, p domain.Principal, id string, in taskUpdatePayload) (domain.Task, error) {
	task, project, err := co.resolveTaskWithProject(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if !policy.Authorize(p, policy.ActionUpdate, policy.TaskResource{Task: task, Project: project}) {
		return domain.Task{}, domain.ErrNotAuthorized
	}
	updated, err := co.store.UpdateTask(ctx, id, in.fields())
	if err != nil {
		return domain.Task{}, err
	}
	co.publish(updated.ProjectID, EventTaskUpdated, updated)
	return updated, nil
}

// UpdateTaskStatus moves a task between status values.
func (co *Coordinator) UpdateTaskStatus(ctx context.Context, p domain.Principal, id string, in taskStatusPayload) (domain.Task, error) {
	task, project, err := co.resolveTaskWithProject(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if !policy.Authorize(p, policy.ActionUpdate, policy.TaskResource{Task: task, Project: project}) {
		return domain.Task{}, domain.ErrNotAuthorized
	}
	updated, err := co.store.UpdateTask(ctx, id, bson.M{"status": in.Status})
	if err != nil {
		return domain.Task{}, err
	}
	co.publish(updated.ProjectID, EventTaskStatusUpdated, map[string]string{
		"taskId": updated.ID,
		"status": updated.Status,
	})
	return updated, nil
}

// DeleteTask removes a task after the creator/project-owner/admin policy
// check.
func (co *Coordinator) DeleteTask(ctx context.Context, p domain.Principal, id string) error {
	task, project, err := co.resolveTaskWithProject(ctx, id)
	if err != nil {
		return err
	}
	if !policy.Authorize(p, policy.ActionDelete, policy.TaskResource{Task: task, Project: project}) {
		return domain.ErrNotAuthorized
	}
	if err := co.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	co.publish(project.ID, EventTaskDeleted, map[string]string{"id": task.ID})
	return nil
}

// CreateComment persists a new comment after verifying the parent task
// exists. The principal becomes the immutable author.
func (co *Coordinator) CreateComment(ctx context.Context, p domain.Principal, in commentCreatePayload) (domain.Comment, error) {
	task, err := co.store.FindTask(ctx, in.TaskID)
	if err != nil {
		return domain.Comment{}, err
	}
	comment := domain.Comment{
		Content:  in.Content,
		TaskID:   task.ID,
		AuthorID: p.ID,
	}
	created, err := co.store.CreateComment(ctx, comment)
	if err != nil {
		return domain.Comment{}, err
	}
	co.publish(task.ProjectID, EventCommentCreated, created)
	return created, nil
}

// UpdateComment applies field updates after the author/admin policy check.
func (co *Coordinator) UpdateComment(ctx context.Context, p domain.Principal, id string, in commentUpdatePayload) (domain.Comment, error) {
	comment, err := co.store.FindComment(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}
	if !policy.Authorize(p, policy.ActionUpdate, policy.CommentResource{Comment: comment}) {
		return domain.Comment{}, domain.ErrNotAuthorized
	}
	updated, err := co.store.UpdateComment(ctx, id, in.fields())
	if err != nil {
		return domain.Comment{}, err
	}
	if task, err := co.store.FindTask(ctx, updated.TaskID); err == nil {
		co.publish(task.ProjectID, EventCommentUpdated, updated)
	}
	return updated, nil
}

// DeleteComment removes a comment after the author/admin policy check.
func (co *Coordinator) DeleteComment(ctx context.Context, p domain.Principal, id string) error {
	comment, err := co.store.FindComment(ctx, id)
	if err != nil {
		return err
	}
	if !policy.Authorize(p, policy.ActionDelete, policy.CommentResource{Comment: comment}) {
		return domain.ErrNotAuthorized
	}
	// The owning channel is resolved before the delete; the parent task
	// outlives its comments.
	task, taskErr := co.store.FindTask(ctx, comment.TaskID)
	if err := co.store.DeleteComment(ctx, id); err != nil {
		return err
	}
	if taskErr == nil {
		co.publish(task.ProjectID, EventCommentDeleted, map[string]string{"id": comment.ID})
	}
	return nil
}
