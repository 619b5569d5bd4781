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

// CreateTask persists a new task.
func (s *Storage) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	if _, err := s.tasks.InsertOne(ctx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// FindTask fetches a task by id.
func (s *Storage) FindTask(ctx context.Context, id string) (domain.Task, error) {
	var t domain.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Task{}, domain.NotFoundError{Resource: "Task", ID: id}
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("find task: %w", err)
	}
	return t, nil
}

// FindTasks lists tasks for the given plan together with the filtered total.
func (s *Storage) FindTasks(ctx context.Context, plan query.Plan) ([]domain.Task, int64, error) {
	return findPage[domain.Task](ctx, s.tasks, plan)
}

// UpdateTask applies the given field updates and returns the updated record.
func (s *Storage) UpdateTask(ctx context.Context, id string, fields bson.M) (domain.Task, error) {
	fields["updatedAt"] = now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t domain.Task
	err := s.tasks.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Task{}, domain.NotFoundError{Resource: "Task", ID: id}
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// DeleteTask removes a task by id.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundError{Resource: "Task", ID: id}
	}
	return nil
}

// ExpandTasks fills in project names and assignee/creator summaries for a
// page of tasks. Applied after filtering, sorting and pagination.
func (s *Storage) ExpandTasks(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	userIDs := make([]string, 0, len(tasks)*2)
	projectIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		userIDs = append(userIDs, t.AssigneeID, t.CreatedByID)
		projectIDs = append(projectIDs, t.ProjectID)
	}
	summaries, err := s.userSummaries(ctx, userIDs)
	if err != nil {
		return err
	}
	refs, err := s.projectRefs(ctx, projectIDs)
	if err != nil {
		return err
	}
	for i := range tasks {
		t := &tasks[i]
		if ref, ok := refs[t.ProjectID]; ok {
			ref := ref
			t.Project = &ref
		}
		if u, ok := summaries[t.AssigneeID]; ok {
			u := u
			t.Assignee = &u
		}
		if u, ok := summaries[t.CreatedByID]; ok {
			u := u
			t.CreatedBy = &u
		}
	}
	return nil
}

func (s *Storage) projectRefs(ctx context.Context, ids []string) (map[string]domain.ProjectRef, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return map[string]domain.ProjectRef{}, nil
	}
	cur, err := s.projects.Find(ctx, bson.M{"_id": bson.M{"$in": uniq}},
		options.Find().SetProjection(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	var rows []struct {
		ID   string `bson:"_id"`
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	out := make(map[string]domain.ProjectRef, len(rows))
	for _, r := range rows {
		out[r.ID] = domain.ProjectRef{ID: r.ID, Name: r.Name}
	}
	return out, nil
}
