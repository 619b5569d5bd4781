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

// CreateComment persists a new comment.
func (s *Storage) CreateComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	if _, err := s.comments.InsertOne(ctx, c); err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

// FindComment fetches a comment by id.
func (s *Storage) FindComment(ctx context.Context, id string) (domain.Comment, error) {
	var c domain.Comment
	err := s.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Comment{}, domain.NotFoundError{Resource: "Comment", ID: id}
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

// FindComments lists comments for the given plan together with the filtered
// total.
func (s *Storage) FindComments(ctx context.Context, plan query.Plan) ([]domain.Comment, int64, error) {
	return findPage[domain.Comment](ctx, s.comments, plan)
}

// UpdateComment applies the given field updates and returns the updated
// record.
func (s *Storage) UpdateComment(ctx context.Context, id string, fields bson.M) (domain.Comment, error) {
	fields["updatedAt"] = now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c domain.Comment
	err := s.comments.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Comment{}, domain.NotFoundError{Resource: "Comment", ID: id}
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment by id.
func (s *Storage) DeleteComment(ctx context.Context, id string) error {
	res, err := s.comments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundError{Resource: "Comment", ID: id}
	}
	return nil
}

// ExpandComments fills in task titles and author summaries for a page of
// comments.
func (s *Storage) ExpandComments(ctx context.Context, comments []domain.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	userIDs := make([]string, 0, len(comments))
	taskIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		userIDs = append(userIDs, c.AuthorID)
		taskIDs = append(taskIDs, c.TaskID)
	}
	summaries, err := s.userSummaries(ctx, userIDs)
	if err != nil {
		return err
	}
	refs, err := s.taskRefs(ctx, taskIDs)
	if err != nil {
		return err
	}
	for i := range comments {
		c := &comments[i]
		if ref, ok := refs[c.TaskID]; ok {
			ref := ref
			c.Task = &ref
		}
		if u, ok := summaries[c.AuthorID]; ok {
			u := u
			c.Author = &u
		}
	}
	return nil
}

func (s *Storage) taskRefs(ctx context.Context, ids []string) (map[string]domain.TaskRef, error) {
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
		return map[string]domain.TaskRef{}, nil
	}
	cur, err := s.tasks.Find(ctx, bson.M{"_id": bson.M{"$in": uniq}},
		options.Find().SetProjection(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	var rows []struct {
		ID    string `bson:"_id"`
		Title string `bson:"title"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	out := make(map[string]domain.TaskRef, len(rows))
	for _, r := range rows {
		out[r.ID] = domain.TaskRef{ID: r.ID, Title: r.Title}
	}
	return out, nil
}
