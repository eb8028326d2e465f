package query

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

// Kind is the declared type of a filterable field; filter values are cast to it.
type Kind int

const (
	String Kind = iota
	Number
	Bool
	Time
	ID
)

// Schema lists the fields a collection allows in filters and sorts.
type Schema map[string]Kind

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultSort  = "createdAt"
	VersionField = "__v"
)

var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

var rangeOps = map[string]Op{"gte": Gte, "gt": Gt, "lte": Lte, "lt": Lt}

var (
	// price[gte], price[gte]=, and the dotted form price.gte some clients send
	bracketKey = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*?)(?:\[([^\]]*)\]|\.(gte|gt|lte|lt))$`)
	fieldName  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
)

// Features turns untrusted request parameters into a Query. Stages can be chained
// in the fixed order via Apply, or invoked individually. The first error sticks.
type Features struct {
	Query  *Query
	schema Schema
	params url.Values
	err    error
}

func NewFeatures(schema Schema, params url.Values) *Features {
	return &Features{Query: New(), schema: schema, params: params}
}

// On runs the stages against an existing query instead of a fresh one.
func (f *Features) On(q *Query) *Features {
	f.Query = q
	return f
}

func (f *Features) Err() error { return f.err }

// Apply runs filter, sort, field limiting and pagination in that order.
func (f *Features) Apply() (*Query, error) {
	f.Filter().Sort().LimitFields().Paginate()
	if f.err != nil {
		return nil, f.err
	}
	return f.Query, nil
}

// Filter copies every non-reserved parameter into conditions.
func (f *Features) Filter() *Features {
	if f.err != nil {
		return f
	}
	keys := make([]string, 0, len(f.params))
	for k := range f.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] {
			continue
		}
		field, op, err := parseKey(key)
		if err != nil {
			f.err = err
			return f
		}
		kind, ok := f.schema[field]
		if !ok {
			f.err = apperror.FieldError(field, "is not a filterable field")
			return f
		}
		values := f.params[key]
		if len(values) == 0 {
			continue
		}
		if op == Eq && len(values) > 1 {
			cast := make([]any, 0, len(values))
			for _, raw := range values {
				v, err := castValue(field, kind, raw)
				if err != nil {
					f.err = err
					return f
				}
				cast = append(cast, v)
			}
			f.Query.Where(field, In, cast)
			continue
		}
		// repeated range parameters keep the last value
		v, err := castValue(field, kind, values[len(values)-1])
		if err != nil {
			f.err = err
			return f
		}
		f.Query.Where(field, op, v)
	}
	return f
}

func parseKey(key string) (string, Op, error) {
	if m := bracketKey.FindStringSubmatch(key); m != nil {
		name := m[2]
		if name == "" {
			name = m[3]
		}
		op, ok := rangeOps[strings.ToLower(name)]
		if !ok {
			return "", "", apperror.FieldError(m[1], "unsupported operator "+strconv.Quote(name))
		}
		return m[1], op, nil
	}
	if !fieldName.MatchString(key) {
		return "", "", apperror.FieldError(key, "invalid filter parameter")
	}
	return key, Eq, nil
}

func castValue(field string, kind Kind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case Number:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperror.FieldError(field, "must be numeric")
		}
		return n, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperror.FieldError(field, "must be a boolean value")
		}
		return b, nil
	case Time:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, apperror.FieldError(field, "must be a valid datetime")
		}
		return t.UTC(), nil
	case ID:
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, apperror.FieldError(field, "must be a valid id")
		}
		return id, nil
	default:
		return raw, nil
	}
}

// Sort reads a comma separated list; a leading '-' means descending.
// _id ascending is always the final key so equal values keep insertion order.
func (f *Features) Sort() *Features {
	if f.err != nil {
		return f
	}
	raw := f.params.Get("sort")
	if strings.TrimSpace(raw) == "" {
		raw = DefaultSort
	}
	var out []SortField
	seenID := false
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sf := SortField{Field: part}
		if strings.HasPrefix(part, "-") {
			sf = SortField{Field: part[1:], Desc: true}
		}
		if sf.Field == "_id" {
			seenID = true
		} else if _, ok := f.schema[sf.Field]; !ok {
			f.err = apperror.FieldError(sf.Field, "is not a sortable field")
			return f
		}
		out = append(out, sf)
	}
	if !seenID {
		out = append(out, SortField{Field: "_id"})
	}
	f.Query.Sort = out
	return f
}

// LimitFields applies an inclusion (or '-' exclusion) list. Without one the
// version counter is dropped.
func (f *Features) LimitFields() *Features {
	if f.err != nil {
		return f
	}
	raw := f.params.Get("fields")
	if strings.TrimSpace(raw) == "" {
		f.Query.Include = nil
		f.Query.Exclude = []string{VersionField}
		return f
	}
	var include, exclude []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := strings.TrimPrefix(part, "-")
		if !fieldName.MatchString(name) {
			f.err = apperror.FieldError("fields", "invalid field "+strconv.Quote(part))
			return f
		}
		if strings.HasPrefix(part, "-") {
			exclude = append(exclude, name)
		} else {
			include = append(include, name)
		}
	}
	if len(include) > 0 && len(exclude) > 0 {
		f.err = apperror.FieldError("fields", "cannot mix inclusion and exclusion")
		return f
	}
	f.Query.Include = include
	f.Query.Exclude = exclude
	return f
}

// Paginate never checks that the page exists; past the end yields no rows.
func (f *Features) Paginate() *Features {
	if f.err != nil {
		return f
	}
	page := positiveInt(f.params.Get("page"), DefaultPage)
	limit := positiveInt(f.params.Get("limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// a skip that would overflow is past any real collection
	if page-1 > math.MaxInt64/limit {
		f.Query.Skip = math.MaxInt64
	} else {
		f.Query.Skip = (page - 1) * limit
	}
	f.Query.Limit = limit
	return f
}

func positiveInt(raw string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return def
	}
	return n
}
