package domain

import "time"

// Comment belongs to exactly one task. TaskID and AuthorID are set at
// creation and immutable afterwards.
type Comment struct {
	ID        string    `bson:"_id" json:"id"`
	Content   string    `bson:"content" json:"content"`
	TaskID    string    `bson:"taskId" json:"taskId"`
	AuthorID  string    `bson:"authorId" json:"authorId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Expanded references, filled in on reads, never persisted.
	Task   *TaskRef     `bson:"-" json:"task,omitempty"`
	Author *UserSummary `bson:"-" json:"author,omitempty"`
}

// TaskRef is the shape a referenced task is expanded into.
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
