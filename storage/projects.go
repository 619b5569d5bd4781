package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"taskflow/domain"
	"taskflow/query"
)

// CreateProject persists a new project.
func (s *Storage) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Members == nil {
		p.Members = []domain.Member{}
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	if _, err := s.projects.InsertOne(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// FindProject fetches a project by id.
func (s *Storage) FindProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Project{}, domain.NotFoundError{Resource: "Project", ID: id}
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

// FindProjects lists projects for the given plan together with the filtered
// total.
func (s *Storage) FindProjects(ctx context.Context, plan query.Plan) ([]domain.Project, int64, error) {
	return findPage[domain.Project](ctx, s.projects, plan)
}

// UpdateProject applies the given field updates and returns the updated
// record. Ownership fields never pass through here; the coordinator strips
// them before the call.
func (s *Storage) UpdateProject(ctx context.Context, id string, fields bson.M) (domain.Project, error) {
	fields["updatedAt"] = now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p domain.Project
	err := s.projects.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Project{}, domain.NotFoundError{Resource: "Project", ID: id}
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// ReplaceProjectMembers swaps the membership list and returns the updated
// record.
func (s *Storage) ReplaceProjectMembers(ctx context.Context, id string, members []domain.Member) (domain.Project, error) {
	return s.UpdateProject(ctx, id, bson.M{"members": members})
}

// DeleteProject removes a project by id.
func (s *Storage) DeleteProject(ctx context.Context, id string) error {
	res, err := s.projects.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundError{Resource: "Project", ID: id}
	}
	return nil
}

// ExpandProject fills in the owner and member user summaries.
func (s *Storage) ExpandProject(ctx context.Context, p *domain.Project) error {
	ids := []string{p.OwnerID}
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	summaries, err := s.userSummaries(ctx, ids)
	if err != nil {
		return err
	}
	if owner, ok := summaries[p.OwnerID]; ok {
		p.Owner = &owner
	}
	for i := range p.Members {
		if u, ok := summaries[p.Members[i].UserID]; ok {
			u := u
			p.Members[i].User = &u
		}
	}
	return nil
}
