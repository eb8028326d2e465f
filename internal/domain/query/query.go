package query

// Op is a comparison operator understood by every store adapter.
type Op string

const (
	Eq        Op = "eq"
	Ne        Op = "ne"
	Gt        Op = "gt"
	Gte       Op = "gte"
	Lt        Op = "lt"
	Lte       Op = "lte"
	In        Op = "in"
	GeoWithin Op = "geoWithin"
)

// Condition is one predicate of a conjunctive filter.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// GeoCircle is a spherical cap; Radius is in radians.
type GeoCircle struct {
	Lng    float64
	Lat    float64
	Radius float64
}

type SortField struct {
	Field string
	Desc  bool
}

// Query is a store-agnostic read query. Conditions are ANDed.
type Query struct {
	Conditions []Condition
	Sort       []SortField
	Include    []string
	Exclude    []string
	Skip       int64
	Limit      int64
	Populate   []string
}

func New() *Query { return &Query{} }

// Where appends a condition and returns q for chaining.
func (q *Query) Where(field string, op Op, value any) *Query {
	q.Conditions = append(q.Conditions, Condition{Field: field, Op: op, Value: value})
	return q
}

// Prepend puts a condition in front of the existing ones.
func (q *Query) Prepend(field string, op Op, value any) *Query {
	q.Conditions = append([]Condition{{Field: field, Op: op, Value: value}}, q.Conditions...)
	return q
}

// WithPopulate requests resolution of a declared reference set. Duplicates are ignored.
func (q *Query) WithPopulate(names ...string) *Query {
	for _, n := range names {
		if !q.Populates(n) {
			q.Populate = append(q.Populate, n)
		}
	}
	return q
}

func (q *Query) Populates(name string) bool {
	for _, p := range q.Populate {
		if p == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the slices so hooks never alias a caller's query.
func (q *Query) Clone() *Query {
	c := *q
	c.Conditions = append([]Condition(nil), q.Conditions...)
	c.Sort = append([]SortField(nil), q.Sort...)
	c.Include = append([]string(nil), q.Include...)
	c.Exclude = append([]string(nil), q.Exclude...)
	c.Populate = append([]string(nil), q.Populate...)
	return &c
}
