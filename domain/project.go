package domain

import "time"

// Project status values.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on-hold"
	ProjectCompleted = "completed"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

// Member is a single membership entry. UserID is unique within a project.
type Member struct {
	UserID string `bson:"userId" json:"userId"`
	Role   string `bson:"role" json:"role"`

	// User is filled in on expanded reads, never persisted.
	User *UserSummary `bson:"-" json:"user,omitempty"`
}

// Project groups tasks and members. The owner is set at creation from the
// requesting principal and is immutable afterwards.
type Project struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	OwnerID     string    `bson:"ownerId" json:"ownerId"`
	Members     []Member  `bson:"members" json:"members"`
	StartDate   time.Time `bson:"startDate" json:"startDate"`
	EndDate     time.Time `bson:"endDate" json:"endDate"`
	Status      string    `bson:"status" json:"status"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`

	// Owner is filled in on expanded reads, never persisted.
	Owner *UserSummary `bson:"-" json:"owner,omitempty"`
}

// HasMember reports whether userID already appears in the membership list.
func (p Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
