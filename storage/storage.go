// Package storage is the persistence boundary: a thin MongoDB adapter
// exposing find/count/create/update/delete keyed by resource type and
// parameterized by a query.Plan.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"taskflow/query"
)

// Collection names.
const (
	collUsers    = "users"
	collProjects = "projects"
	collTasks    = "tasks"
	collComments = "comments"
)

// Storage provides access to the underlying document store.
type Storage struct {
	client   *mongo.Client
	users    *mongo.Collection
	projects *mongo.Collection
	tasks    *mongo.Collection
	comments *mongo.Collection
}

// New connects to MongoDB and prepares collection handles. The caller owns
// the lifetime and must Close.
func New(ctx context.Context, uri, dbName string) (*Storage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(dbName)
	s := &Storage{
		client:   client,
		users:    db.Collection(collUsers),
		projects: db.Collection(collProjects),
		tasks:    db.Collection(collTasks),
		comments: db.Collection(collComments),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close disconnects from the store.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the store is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	for coll, key := range map[*mongo.Collection]string{
		s.projects: "ownerId",
		s.tasks:    "projectId",
		s.comments: "taskId",
	} {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: key, Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("create %s index: %w", key, err)
		}
	}
	return nil
}

func newID() string { return uuid.NewString() }

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// findPage runs a plan against a collection: filtered count first, then the
// filtered/sorted/paged fetch. The count intentionally ignores skip/limit.
func findPage[T any](ctx context.Context, coll *mongo.Collection, plan query.Plan) ([]T, int64, error) {
	filter := filterDocument(plan.Filter)
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	cur, err := coll.Find(ctx, filter, findOptions(plan))
	if err != nil {
		return nil, 0, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, total, nil
}
