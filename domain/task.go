package domain

import "time"

// Task status values.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in-progress"
	TaskDone       = "done"
)

// Task priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

// ValidPriority reports whether p is a known task priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task belongs to exactly one project. ProjectID and CreatedByID are set at
// creation and immutable afterwards.
type Task struct {
	ID          string     `bson:"_id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	ProjectID   string     `bson:"projectId" json:"projectId"`
	AssigneeID  string     `bson:"assigneeId,omitempty" json:"assigneeId,omitempty"`
	CreatedByID string     `bson:"createdById" json:"createdById"`
	Status      string     `bson:"status" json:"status"`
	Priority    string     `bson:"priority" json:"priority"`
	DueDate     *time.Time `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`

	// Expanded references, filled in on reads, never persisted.
	Project   *ProjectRef  `bson:"-" json:"project,omitempty"`
	Assignee  *UserSummary `bson:"-" json:"assignee,omitempty"`
	CreatedBy *UserSummary `bson:"-" json:"createdBy,omitempty"`
}

// ProjectRef is the shape a referenced project is expanded into.
type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
