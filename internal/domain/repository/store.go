package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/query"
)

var (
	ErrNotFound    = errors.New("repository: document not found")
	ErrDuplicate   = errors.New("repository: duplicate key")
	ErrUnsupported = errors.New("repository: operation not supported by this store")
)

// Collection is the document store abstraction every entity is persisted through.
// Implementations stamp _id, createdAt and __v on insert and bump __v on update.
type Collection[T any] interface {
	Name() string
	Insert(ctx context.Context, doc *T) (*T, error)
	Find(ctx context.Context, q *query.Query) ([]*T, error)
	FindOne(ctx context.Context, q *query.Query) (*T, error)
	// UpdateOne atomically finds the first match, applies set/unset and returns the result.
	UpdateOne(ctx context.Context, where []query.Condition, set map[string]any, unset []string) (*T, error)
	DeleteOne(ctx context.Context, where []query.Condition) (*T, error)
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error
}

// RatingStats is the grouped review summary of one tour.
type RatingStats struct {
	Quantity int
	Average  float64
}

// ReviewStats computes rating statistics over the review collection.
type ReviewStats interface {
	RatingStats(ctx context.Context, tourID primitive.ObjectID) (RatingStats, bool, error)
}

// Index declares a store index. Only Unique indexes change behaviour; the
// rest exist for query planning. Geo marks a 2dsphere key on a single field.
type Index struct {
	Fields []string
	Unique bool
	Geo    bool
}
