package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/hooks"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
	"github.com/oksasatya/go-tour-booking/pkg/validation"
)

// Populator resolves one declared reference set on already loaded documents.
type Populator[T any] func(ctx context.Context, docs []*T) error

// Descriptor is everything the generic operations need to know about an entity.
type Descriptor[T any] struct {
	Name string
	// Schema lists the fields clients may filter and sort on.
	Schema query.Schema
	// Mutable lists the top-level fields a client body may set on create or update.
	Mutable []string
	// New returns a document carrying the entity defaults.
	New        func() *T
	Hooks      *hooks.Registry[T]
	Populators map[string]Populator[T]
}

// Change is emitted after a write has been committed.
type Change[T any] struct {
	Op   hooks.Op
	Doc  *T
	Prev *T
}

type Listener[T any] func(ctx context.Context, ch Change[T])

// Resource implements create, read, update, delete and aggregate for one entity
// on top of a store, running the entity hooks around every store call.
type Resource[T any] struct {
	desc      Descriptor[T]
	store     repository.Collection[T]
	logger    *logrus.Logger
	mutable   map[string]bool
	listeners []Listener[T]
}

func NewResource[T any](desc Descriptor[T], store repository.Collection[T], logger *logrus.Logger) *Resource[T] {
	if desc.Hooks == nil {
		desc.Hooks = hooks.NewRegistry[T]()
	}
	if desc.New == nil {
		desc.New = func() *T { return new(T) }
	}
	m := make(map[string]bool, len(desc.Mutable))
	for _, f := range desc.Mutable {
		m[f] = true
	}
	return &Resource[T]{desc: desc, store: store, logger: logger, mutable: m}
}

func (r *Resource[T]) Name() string { return r.desc.Name }

func (r *Resource[T]) Hooks() *hooks.Registry[T] { return r.desc.Hooks }

func (r *Resource[T]) Store() repository.Collection[T] { return r.store }

// Subscribe registers a post-commit listener. Listeners run synchronously after
// the store write; they cannot fail the operation.
func (r *Resource[T]) Subscribe(l Listener[T]) { r.listeners = append(r.listeners, l) }

// SetPopulator declares a reference set after construction, for entities that
// reference each other.
func (r *Resource[T]) SetPopulator(name string, p Populator[T]) {
	if r.desc.Populators == nil {
		r.desc.Populators = map[string]Populator[T]{}
	}
	r.desc.Populators[name] = p
}

func (r *Resource[T]) op(ctx context.Context, op hooks.Op) *hooks.OpContext {
	return hooks.NewOpContext(ctx, r.desc.Name, op, r.logger)
}

// Decode builds a new document from a client body, keeping only mutable fields.
func (r *Resource[T]) Decode(body map[string]any) (*T, error) {
	doc := r.desc.New()
	if err := r.apply(doc, r.Permit(body)); err != nil {
		return nil, err
	}
	return doc, nil
}

// Permit drops every key that is not a mutable field.
func (r *Resource[T]) Permit(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		if r.mutable[k] {
			out[k] = v
		}
	}
	return out
}

func (r *Resource[T]) apply(doc *T, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return apperror.FieldError("payload", "invalid json")
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return apperror.Validation(validation.ToDetails(err))
	}
	return nil
}

func (r *Resource[T]) Create(ctx context.Context, doc *T) (*T, error) {
	oc := r.op(ctx, hooks.OpCreate)
	changed, err := presentFields(doc)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "encode "+r.desc.Name, err)
	}
	if err := validation.Struct(doc); err != nil {
		return nil, err
	}
	ev := &hooks.Event[T]{Doc: doc, Changed: changed}
	if err := r.desc.Hooks.Run(hooks.BeforeCreate, oc, ev); err != nil {
		return nil, err
	}
	// hooks normalize fields, so the stored form is checked again
	if err := validation.Struct(ev.Doc); err != nil {
		return nil, err
	}
	created, err := r.store.Insert(ctx, ev.Doc)
	if err != nil {
		return nil, r.translate(err)
	}
	after := &hooks.Event[T]{Doc: created, Changed: ev.Changed}
	if err := r.desc.Hooks.Run(hooks.AfterCreate, oc, after); err != nil {
		return nil, err
	}
	r.notify(ctx, Change[T]{Op: hooks.OpCreate, Doc: created})
	return created, nil
}

func (r *Resource[T]) ReadOne(ctx context.Context, id string, populate ...string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	q := query.New().Where("_id", query.Eq, oid).WithPopulate(populate...)
	q.Exclude = []string{query.VersionField}
	return r.FindOne(ctx, q)
}

// ReadMany runs the query feature pipeline over params on top of the base
// conditions, which the caller controls (nested routes). The count is the
// number of returned items.
func (r *Resource[T]) ReadMany(ctx context.Context, params url.Values, base ...query.Condition) ([]*T, int, error) {
	q := query.New()
	q.Conditions = append(q.Conditions, base...)
	q, err := query.NewFeatures(r.desc.Schema, params).On(q).Apply()
	if err != nil {
		return nil, 0, err
	}
	items, err := r.Find(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return items, len(items), nil
}

// Find runs an internal query through the read hooks and populators.
func (r *Resource[T]) Find(ctx context.Context, q *query.Query) ([]*T, error) {
	oc := r.op(ctx, hooks.OpReadMany)
	ev := &hooks.Event[T]{Query: q.Clone()}
	if err := r.desc.Hooks.Run(hooks.BeforeRead, oc, ev); err != nil {
		return nil, err
	}
	items, err := r.store.Find(ctx, ev.Query)
	if err != nil {
		return nil, r.translate(err)
	}
	return r.finishRead(oc, ev, items)
}

func (r *Resource[T]) FindOne(ctx context.Context, q *query.Query) (*T, error) {
	oc := r.op(ctx, hooks.OpReadOne)
	ev := &hooks.Event[T]{Query: q.Clone()}
	if err := r.desc.Hooks.Run(hooks.BeforeRead, oc, ev); err != nil {
		return nil, err
	}
	doc, err := r.store.FindOne(ctx, ev.Query)
	if err != nil {
		return nil, r.translate(err)
	}
	items, err := r.finishRead(oc, ev, []*T{doc})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

func (r *Resource[T]) finishRead(oc *hooks.OpContext, ev *hooks.Event[T], items []*T) ([]*T, error) {
	for _, name := range ev.Query.Populate {
		p, ok := r.desc.Populators[name]
		if !ok {
			return nil, apperror.New(apperror.Internal, fmt.Sprintf("%s has no reference set %q", r.desc.Name, name))
		}
		if len(items) == 0 {
			continue
		}
		if err := p(oc.Ctx, items); err != nil {
			return nil, err
		}
	}
	ev.Results = items
	if err := r.desc.Hooks.Run(hooks.AfterRead, oc, ev); err != nil {
		return nil, err
	}
	return ev.Results, nil
}

// visible resolves the read-phase conditions for a single id, so writes never
// reach documents that reads cannot see.
func (r *Resource[T]) visible(oc *hooks.OpContext, oid primitive.ObjectID) ([]query.Condition, error) {
	ev := &hooks.Event[T]{Query: query.New().Where("_id", query.Eq, oid)}
	if err := r.desc.Hooks.Run(hooks.BeforeRead, oc, ev); err != nil {
		return nil, err
	}
	return ev.Query.Conditions, nil
}

// Update applies a client patch. Keys outside the mutable whitelist are dropped;
// validation runs on the merged document.
func (r *Resource[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	patch = r.Permit(patch)
	return r.Modify(ctx, id, func(doc *T) ([]string, error) {
		if err := r.apply(doc, patch); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(patch))
		for k := range patch {
			keys = append(keys, k)
		}
		return keys, nil
	})
}

// Modify loads the visible document, lets mutate change a copy and report the
// fields it touched, then runs the update hooks and writes only those fields.
// It is the update path for service-owned fields such as credentials.
func (r *Resource[T]) Modify(ctx context.Context, id string, mutate func(doc *T) ([]string, error)) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	oc := r.op(ctx, hooks.OpUpdate)
	where, err := r.visible(oc, oid)
	if err != nil {
		return nil, err
	}
	prev, err := r.store.FindOne(ctx, &query.Query{Conditions: where})
	if err != nil {
		return nil, r.translate(err)
	}

	next, err := clone(prev)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "copy "+r.desc.Name, err)
	}
	touched, err := mutate(next)
	if err != nil {
		return nil, err
	}
	if len(touched) == 0 {
		return prev, nil
	}
	if err := validation.Struct(next); err != nil {
		return nil, err
	}
	ev := &hooks.Event[T]{Doc: next, Prev: prev, Changed: hooks.NewFields(touched...)}
	if err := r.desc.Hooks.Run(hooks.BeforeUpdate, oc, ev); err != nil {
		return nil, err
	}
	if err := validation.Struct(ev.Doc); err != nil {
		return nil, err
	}

	set, unset, err := diff(ev.Doc, ev.Changed)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "encode "+r.desc.Name, err)
	}
	updated, err := r.store.UpdateOne(ctx, where, set, unset)
	if err != nil {
		return nil, r.translate(err)
	}
	after := &hooks.Event[T]{Doc: updated, Prev: prev, Changed: ev.Changed}
	if err := r.desc.Hooks.Run(hooks.AfterUpdate, oc, after); err != nil {
		return nil, err
	}
	r.notify(ctx, Change[T]{Op: hooks.OpUpdate, Doc: updated, Prev: prev})
	return updated, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.DeleteDoc(ctx, id)
	return err
}

// DeleteDoc deletes and returns the removed document.
func (r *Resource[T]) DeleteDoc(ctx context.Context, id string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	oc := r.op(ctx, hooks.OpDelete)
	where, err := r.visible(oc, oid)
	if err != nil {
		return nil, err
	}
	ev := &hooks.Event[T]{Query: &query.Query{Conditions: where}}
	if err := r.desc.Hooks.Run(hooks.BeforeDelete, oc, ev); err != nil {
		return nil, err
	}
	deleted, err := r.store.DeleteOne(ctx, ev.Query.Conditions)
	if err != nil {
		return nil, r.translate(err)
	}
	after := &hooks.Event[T]{Doc: deleted, Prev: deleted}
	if err := r.desc.Hooks.Run(hooks.AfterDelete, oc, after); err != nil {
		return nil, err
	}
	r.notify(ctx, Change[T]{Op: hooks.OpDelete, Doc: deleted, Prev: deleted})
	return deleted, nil
}

// Aggregate runs the before-aggregate hooks, which may rewrite the pipeline,
// then executes it and decodes rows into out.
func (r *Resource[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	oc := r.op(ctx, hooks.OpAggregate)
	p := append(mongo.Pipeline(nil), pipeline...)
	ev := &hooks.Event[T]{Pipeline: &p}
	if err := r.desc.Hooks.Run(hooks.BeforeAggregate, oc, ev); err != nil {
		return err
	}
	if err := r.store.Aggregate(ctx, *ev.Pipeline, out); err != nil {
		return r.translate(err)
	}
	return nil
}

func (r *Resource[T]) notify(ctx context.Context, ch Change[T]) {
	for _, l := range r.listeners {
		l(ctx, ch)
	}
}

func orStd(l *logrus.Logger) *logrus.Logger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}

func (r *Resource[T]) translate(err error) error {
	var ae *apperror.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperror.New(apperror.NotFound, "no document found with that ID")
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.Wrap(apperror.ConstraintViolation, "duplicate field value, please use another value", err)
	case errors.Is(err, repository.ErrUnsupported):
		return apperror.Wrap(apperror.Internal, r.desc.Name+" store does not support this operation", err)
	}
	return apperror.Wrap(apperror.Internal, r.desc.Name+" store", err)
}

// ParseID maps malformed ids to NotFound, like an id that matches nothing.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.New(apperror.NotFound, "no document found with that ID")
	}
	return oid, nil
}

func presentFields(doc any) (hooks.Fields, error) {
	m, err := toMap(doc)
	if err != nil {
		return nil, err
	}
	f := hooks.Fields{}
	for k := range m {
		f.Touch(k)
	}
	return f, nil
}

// diff turns the changed fields of doc into $set and $unset lists. A changed
// field that encodes to nothing is removed from the stored document.
func diff(doc any, changed hooks.Fields) (map[string]any, []string, error) {
	m, err := toMap(doc)
	if err != nil {
		return nil, nil, err
	}
	set := map[string]any{}
	var unset []string
	for _, f := range changed.List() {
		if f == "_id" || f == query.VersionField {
			continue
		}
		if v, ok := m[f]; ok {
			set[f] = v
		} else {
			unset = append(unset, f)
		}
	}
	sort.Strings(unset)
	return set, unset, nil
}

func toMap(doc any) (bson.M, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func clone[T any](doc *T) (*T, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := bson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
