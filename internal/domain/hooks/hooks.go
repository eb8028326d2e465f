// Package hooks is an explicit, ordered registry of lifecycle hooks keyed by
// phase. A Registry belongs to one entity type; the resource layer invokes it
// around every store call.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/query"
)

type Phase int

const (
	BeforeCreate Phase = iota
	AfterCreate
	BeforeUpdate
	AfterUpdate
	BeforeRead
	AfterRead
	BeforeDelete
	AfterDelete
	BeforeAggregate
)

var phaseNames = [...]string{
	"before-create", "after-create", "before-update", "after-update",
	"before-read", "after-read", "before-delete", "after-delete", "before-aggregate",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ErrStop ends the current phase early without failing the operation.
var ErrStop = errors.New("hooks: stop")

// Op names the operation that triggered a phase.
type Op string

const (
	OpCreate    Op = "create"
	OpReadOne   Op = "read-one"
	OpReadMany  Op = "read-many"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpAggregate Op = "aggregate"
)

// OpContext is passed explicitly to every hook; hooks hold no bound state.
type OpContext struct {
	Ctx     context.Context
	Entity  string
	Op      Op
	Started time.Time
	Logger  *logrus.Logger
}

func NewOpContext(ctx context.Context, entity string, op Op, logger *logrus.Logger) *OpContext {
	return &OpContext{Ctx: ctx, Entity: entity, Op: op, Started: time.Now(), Logger: logger}
}

// Log returns an entry tagged with the operation, tolerating a nil logger.
func (oc *OpContext) Log() *logrus.Entry {
	l := oc.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithFields(logrus.Fields{"entity": oc.Entity, "op": string(oc.Op)})
}

// Event carries whatever the phase operates on. Only the fields relevant to the
// phase are set: Query for reads, Doc/Prev/Changed for writes, Results after
// reads, Pipeline before aggregations.
type Event[T any] struct {
	Query    *query.Query
	Doc      *T
	Prev     *T
	Changed  Fields
	Results  []*T
	Pipeline *mongo.Pipeline
}

// Fields is the set of document fields a write touches.
type Fields map[string]bool

func NewFields(names ...string) Fields {
	f := Fields{}
	for _, n := range names {
		f[n] = true
	}
	return f
}

func (f Fields) Has(name string) bool { return f[name] }

func (f Fields) Touch(names ...string) {
	for _, n := range names {
		f[n] = true
	}
}

func (f Fields) Drop(names ...string) {
	for _, n := range names {
		delete(f, n)
	}
}

func (f Fields) List() []string {
	out := make([]string, 0, len(f))
	for n := range f {
		out = append(out, n)
	}
	return out
}

type Func[T any] func(oc *OpContext, ev *Event[T]) error

type entry[T any] struct {
	name string
	fn   Func[T]
}

type Registry[T any] struct {
	hooks map[Phase][]entry[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{hooks: map[Phase][]entry[T]{}}
}

// On registers fn for each phase. Registration order is execution order.
func (r *Registry[T]) On(name string, fn Func[T], phases ...Phase) *Registry[T] {
	for _, p := range phases {
		r.hooks[p] = append(r.hooks[p], entry[T]{name: name, fn: fn})
	}
	return r
}

// Names lists the hooks of a phase in execution order.
func (r *Registry[T]) Names(p Phase) []string {
	out := make([]string, 0, len(r.hooks[p]))
	for _, e := range r.hooks[p] {
		out = append(out, e.name)
	}
	return out
}

// Run executes the hooks of a phase in order. The first failing hook aborts
// the phase and its error is returned; ErrStop ends the phase successfully.
func (r *Registry[T]) Run(p Phase, oc *OpContext, ev *Event[T]) error {
	if r == nil {
		return nil
	}
	for _, e := range r.hooks[p] {
		err := e.fn(oc, ev)
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s hook %q: %w", p, e.name, err)
		}
	}
	return nil
}
