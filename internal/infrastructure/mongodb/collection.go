// Package mongodb implements the document store on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
)

type Collection[T any] struct {
	coll    *mongo.Collection
	indexes []repository.Index
	now     func() time.Time
}

func NewCollection[T any](db *mongo.Database, name string, indexes ...repository.Index) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name), indexes: indexes, now: time.Now}
}

func (c *Collection[T]) Name() string { return c.coll.Name() }

// EnsureIndexes creates the declared indexes; it is idempotent.
func (c *Collection[T]) EnsureIndexes(ctx context.Context) error {
	if len(c.indexes) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(c.indexes))
	for _, ix := range c.indexes {
		keys := bson.D{}
		for _, f := range ix.Fields {
			var v any = 1
			if ix.Geo {
				v = "2dsphere"
			}
			keys = append(keys, bson.E{Key: f, Value: v})
		}
		opts := options.Index()
		if ix.Unique {
			opts.SetUnique(true)
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: opts})
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("%s indexes: %w", c.Name(), err)
	}
	return nil
}

func (c *Collection[T]) Insert(ctx context.Context, doc *T) (*T, error) {
	var d bson.D
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	if id, ok := lookup(d, "_id").(primitive.ObjectID); !ok || id.IsZero() {
		d = set(d, "_id", primitive.NewObjectID())
	}
	if created, ok := lookup(d, "createdAt").(primitive.DateTime); !ok || created.Time().IsZero() {
		d = set(d, "createdAt", primitive.NewDateTimeFromTime(c.now().UTC()))
	}
	d = set(d, "__v", int32(0))

	if _, err := c.coll.InsertOne(ctx, d); err != nil {
		return nil, c.translate(err)
	}
	out := new(T)
	raw, err = bson.Marshal(d)
	if err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collection[T]) Find(ctx context.Context, q *query.Query) ([]*T, error) {
	opts := options.Find()
	if s := Sort(q.Sort); s != nil {
		opts.SetSort(s)
	}
	if p := Projection(q.Include, q.Exclude); p != nil {
		opts.SetProjection(p)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := c.coll.Find(ctx, Filter(q.Conditions), opts)
	if err != nil {
		return nil, c.translate(err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []*T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%s decode: %w", c.Name(), err)
	}
	return out, nil
}

func (c *Collection[T]) FindOne(ctx context.Context, q *query.Query) (*T, error) {
	opts := options.FindOne()
	if s := Sort(q.Sort); s != nil {
		opts.SetSort(s)
	}
	if p := Projection(q.Include, q.Exclude); p != nil {
		opts.SetProjection(p)
	}
	out := new(T)
	if err := c.coll.FindOne(ctx, Filter(q.Conditions), opts).Decode(out); err != nil {
		return nil, c.translate(err)
	}
	return out, nil
}

// UpdateOne is a single FindOneAndUpdate, so the match and the write are atomic.
func (c *Collection[T]) UpdateOne(ctx context.Context, where []query.Condition, setFields map[string]any, unset []string) (*T, error) {
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "__v", Value: 1}}}}
	if len(setFields) > 0 {
		update = append(update, bson.E{Key: "$set", Value: bson.M(setFields)})
	}
	if len(unset) > 0 {
		u := bson.D{}
		for _, f := range unset {
			u = append(u, bson.E{Key: f, Value: ""})
		}
		update = append(update, bson.E{Key: "$unset", Value: u})
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	out := new(T)
	if err := c.coll.FindOneAndUpdate(ctx, Filter(where), update, opts).Decode(out); err != nil {
		return nil, c.translate(err)
	}
	return out, nil
}

func (c *Collection[T]) DeleteOne(ctx context.Context, where []query.Condition) (*T, error) {
	out := new(T)
	if err := c.coll.FindOneAndDelete(ctx, Filter(where)).Decode(out); err != nil {
		return nil, c.translate(err)
	}
	return out, nil
}

func (c *Collection[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return c.translate(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("%s aggregate decode: %w", c.Name(), err)
	}
	return nil
}

func (c *Collection[T]) translate(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s %s: %w", c.Name(), duplicateIndex(err), repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", c.Name(), err)
}

// duplicateIndex extracts the index name from an E11000 message when present.
func duplicateIndex(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "index: "); i >= 0 {
		rest := msg[i+len("index: "):]
		if j := strings.IndexByte(rest, ' '); j >= 0 {
			return "index " + rest[:j]
		}
	}
	return "index"
}

func lookup(d bson.D, key string) any {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func set(d bson.D, key string, v any) bson.D {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = v
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: v})
}

var _ repository.Collection[struct{}] = (*Collection[struct{}])(nil)
