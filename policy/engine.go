// Package policy decides whether a principal may perform an action on a
// resource. Decisions are pure in-memory computation; callers must confirm
// the resource exists before asking, so a denial never reveals existence.
package policy

import "taskflow/domain"

// Action names a gated mutation.
type Action string

const (
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionAddMember    Action = "addMember"
	ActionRemoveMember Action = "removeMember"
)

// Resource exposes the principal ids allowed to act on it. Implementations
// carry whatever ownership context the rule needs (a task's rule also needs
// the owning project).
type Resource interface {
	Owners(action Action) []string
}

// Authorize reports whether the principal may perform action on res. Admins
// are allowed unconditionally; everyone else must appear in the resource's
// owner set for the action.
func Authorize(p domain.Principal, action Action, res Resource) bool {
	if p.IsAdmin() {
		return true
	}
	for _, id := range res.Owners(action) {
		if id != "" && id == p.ID {
			return true
		}
	}
	return false
}

// ProjectResource gates project update/delete and membership changes: owner
// only.
type ProjectResource struct {
	Project domain.Project
}

func (r ProjectResource) Owners(Action) []string {
	return []string{r.Project.OwnerID}
}

// TaskResource gates task mutations: the task's creator or the owning
// project's owner.
type TaskResource struct {
	Task    domain.Task
	Project domain.Project
}

func (r TaskResource) Owners(Action) []string {
	return []string{r.Task.CreatedByID, r.Project.OwnerID}
}

// CommentResource gates comment mutations: the author only.
type CommentResource struct {
	Comment domain.Comment
}

func (r CommentResource) Owners(Action) []string {
	return []string{r.Comment.AuthorID}
}
