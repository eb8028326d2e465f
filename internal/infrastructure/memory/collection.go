// Package memory is a process-local document store. It backs STORE_DRIVER=memory
// for local runs and the domain tests; documents are kept as BSON so they go
// through the same codec as the Mongo adapter.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
)

type Collection[T any] struct {
	name    string
	indexes []repository.Index
	now     func() time.Time

	mu   sync.RWMutex
	docs []bson.Raw
}

func NewCollection[T any](name string, indexes ...repository.Index) *Collection[T] {
	return &Collection[T]{name: name, indexes: indexes, now: time.Now}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Insert(ctx context.Context, doc *T) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := toD(doc)
	if err != nil {
		return nil, err
	}
	if id, ok := get(d, "_id").(primitive.ObjectID); !ok || id.IsZero() {
		d = put(d, "_id", primitive.NewObjectID())
	}
	if created, ok := get(d, "createdAt").(primitive.DateTime); !ok || created.Time().IsZero() {
		d = put(d, "createdAt", primitive.NewDateTimeFromTime(c.now().UTC()))
	}
	d = put(d, "__v", int32(0))
	raw, err := bson.Marshal(d)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkUnique(raw, -1); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, raw)
	return decode[T](raw)
}

func (c *Collection[T]) Find(ctx context.Context, q *query.Query) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	matched := c.matching(q.Conditions)
	c.mu.RUnlock()

	sortRaw(matched, q.Sort)
	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[q.Skip:]
		}
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*T, 0, len(matched))
	for _, raw := range matched {
		projected, err := project(raw, q.Include, q.Exclude)
		if err != nil {
			return nil, err
		}
		v, err := decode[T](projected)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T]) FindOne(ctx context.Context, q *query.Query) (*T, error) {
	one := q.Clone()
	one.Skip, one.Limit = 0, 1
	res, err := c.Find(ctx, one)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, repository.ErrNotFound
	}
	return res[0], nil
}

func (c *Collection[T]) UpdateOne(ctx context.Context, where []query.Condition, set map[string]any, unset []string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.firstIndex(where)
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	var d bson.D
	if err := bson.Unmarshal(c.docs[idx], &d); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d = put(d, k, set[k])
	}
	for _, k := range unset {
		d = remove(d, k)
	}
	d = put(d, "__v", bumpVersion(get(d, "__v")))

	raw, err := bson.Marshal(d)
	if err != nil {
		return nil, err
	}
	if err := c.checkUnique(raw, idx); err != nil {
		return nil, err
	}
	c.docs[idx] = raw
	return decode[T](raw)
}

func (c *Collection[T]) DeleteOne(ctx context.Context, where []query.Condition) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.firstIndex(where)
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	raw := c.docs[idx]
	c.docs = append(c.docs[:idx], c.docs[idx+1:]...)
	return decode[T](raw)
}

// Aggregate is not available in memory; callers must tolerate ErrUnsupported.
func (c *Collection[T]) Aggregate(context.Context, mongo.Pipeline, any) error {
	return fmt.Errorf("%s aggregate: %w", c.name, repository.ErrUnsupported)
}

// Len reports the number of stored documents, ignoring all visibility rules.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// matching must be called with the lock held.
func (c *Collection[T]) matching(where []query.Condition) []bson.Raw {
	var out []bson.Raw
	for _, raw := range c.docs {
		if matchAll(raw, where) {
			out = append(out, raw)
		}
	}
	return out
}

func (c *Collection[T]) firstIndex(where []query.Condition) int {
	for i, raw := range c.docs {
		if matchAll(raw, where) {
			return i
		}
	}
	return -1
}

// checkUnique rejects raw if it collides with another document on a unique index.
// skip is the position of the document being replaced, or -1.
func (c *Collection[T]) checkUnique(raw bson.Raw, skip int) error {
	for _, ix := range c.indexes {
		if !ix.Unique {
			continue
		}
		key, ok := indexKey(raw, ix.Fields)
		if !ok {
			continue
		}
		for i, other := range c.docs {
			if i == skip {
				continue
			}
			if k, ok := indexKey(other, ix.Fields); ok && k == key {
				return fmt.Errorf("%s index %s: %w", c.name, strings.Join(ix.Fields, "_"), repository.ErrDuplicate)
			}
		}
	}
	return nil
}

func indexKey(raw bson.Raw, fields []string) (string, bool) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		rv, err := raw.LookupErr(strings.Split(f, ".")...)
		if err != nil {
			return "", false
		}
		parts = append(parts, rv.Type.String()+":"+string(rv.Value))
	}
	return strings.Join(parts, "\x00"), true
}

func sortRaw(docs []bson.Raw, keys []query.SortField) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareField(docs[i], docs[j], k.Field)
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func project(raw bson.Raw, include, exclude []string) (bson.Raw, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return raw, nil
	}
	top := func(names []string) map[string]bool {
		m := make(map[string]bool, len(names))
		for _, n := range names {
			m[strings.SplitN(n, ".", 2)[0]] = true
		}
		return m
	}
	inc, exc := top(include), top(exclude)
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	out := make(bson.D, 0, len(d))
	for _, e := range d {
		switch {
		case len(inc) > 0 && e.Key != "_id" && !inc[e.Key]:
		case exc[e.Key]:
		default:
			out = append(out, e)
		}
	}
	return bson.Marshal(out)
}

func toD(v any) (bson.D, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func decode[T any](raw bson.Raw) (*T, error) {
	v := new(T)
	if err := bson.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

func get(d bson.D, key string) any {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func put(d bson.D, key string, v any) bson.D {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = v
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: v})
}

func remove(d bson.D, key string) bson.D {
	for i := range d {
		if d[i].Key == key {
			return append(d[:i], d[i+1:]...)
		}
	}
	return d
}

func bumpVersion(v any) int32 {
	switch n := v.(type) {
	case int32:
		return n + 1
	case int64:
		return int32(n) + 1
	}
	return 1
}
