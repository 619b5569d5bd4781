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

// CreateUser persists a new user. A duplicate email fails with
// domain.ConflictError.
func (s *Storage) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ConflictError{Message: "email already registered"}
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// FindUser fetches a user by id.
func (s *Storage) FindUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.NotFoundError{Resource: "User", ID: id}
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// FindUserByEmail fetches a user by email address.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.NotFoundError{Resource: "User", ID: email}
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// FindUsers lists users for the given plan together with the filtered total.
func (s *Storage) FindUsers(ctx context.Context, plan query.Plan) ([]domain.User, int64, error) {
	return findPage[domain.User](ctx, s.users, plan)
}

// UpdateUser applies the given field updates and returns the updated record.
func (s *Storage) UpdateUser(ctx context.Context, id string, fields bson.M) (domain.User, error) {
	fields["updatedAt"] = now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u domain.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.NotFoundError{Resource: "User", ID: id}
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ConflictError{Message: "email already registered"}
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// userSummaries resolves the given user ids into reference summaries.
// Missing users are simply absent from the result.
func (s *Storage) userSummaries(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
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
		return map[string]domain.UserSummary{}, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": uniq}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var users []domain.UserSummary
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make(map[string]domain.UserSummary, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
