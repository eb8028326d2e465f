package memory

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-tour-booking/internal/domain/query"
)

func matchAll(raw bson.Raw, where []query.Condition) bool {
	for _, c := range where {
		if !matchOne(raw, c) {
			return false
		}
	}
	return true
}

// matchOne follows Mongo semantics closely enough for the hooks and the query
// pipeline: missing fields never satisfy ranges, arrays match element-wise.
func matchOne(raw bson.Raw, c query.Condition) bool {
	rv, err := raw.LookupErr(strings.Split(c.Field, ".")...)
	missing := err != nil || rv.Type == bsontype.Null

	switch c.Op {
	case query.Eq:
		if missing {
			return c.Value == nil
		}
		return anyElem(rv, func(v any) bool { return equal(v, c.Value) })
	case query.Ne:
		if missing {
			return c.Value != nil
		}
		return !anyElem(rv, func(v any) bool { return equal(v, c.Value) })
	case query.In:
		if missing {
			return false
		}
		candidates := toSlice(c.Value)
		return anyElem(rv, func(v any) bool {
			for _, x := range candidates {
				if equal(v, x) {
					return true
				}
			}
			return false
		})
	case query.Gt, query.Gte, query.Lt, query.Lte:
		if missing {
			return false
		}
		return anyElem(rv, func(v any) bool {
			cmp, ok := compare(v, c.Value)
			if !ok {
				return false
			}
			switch c.Op {
			case query.Gt:
				return cmp > 0
			case query.Gte:
				return cmp >= 0
			case query.Lt:
				return cmp < 0
			default:
				return cmp <= 0
			}
		})
	case query.GeoWithin:
		circle, ok := c.Value.(query.GeoCircle)
		if !ok || missing {
			return false
		}
		lng, lat, ok := pointOf(raw, c.Field)
		if !ok {
			return false
		}
		return centralAngle(circle.Lng, circle.Lat, lng, lat) <= circle.Radius
	}
	return false
}

func anyElem(rv bson.RawValue, fn func(any) bool) bool {
	if rv.Type == bsontype.Array {
		vals, err := rv.Array().Values()
		if err != nil {
			return false
		}
		for _, el := range vals {
			if v, ok := goValue(el); ok && fn(v) {
				return true
			}
		}
		return false
	}
	v, ok := goValue(rv)
	return ok && fn(v)
}

func goValue(rv bson.RawValue) (any, bool) {
	switch rv.Type {
	case bsontype.Double:
		return rv.Double(), true
	case bsontype.Int32:
		return float64(rv.Int32()), true
	case bsontype.Int64:
		return float64(rv.Int64()), true
	case bsontype.String:
		return rv.StringValue(), true
	case bsontype.Boolean:
		return rv.Boolean(), true
	case bsontype.DateTime:
		return rv.Time().UTC(), true
	case bsontype.ObjectID:
		return rv.ObjectID(), true
	}
	return nil, false
}

// normalize maps Go values onto the small set goValue produces.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.UTC()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func toSlice(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	if _, isID := v.(primitive.ObjectID); isID {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func equal(a, b any) bool {
	cmp, ok := compare(a, b)
	return ok && cmp == 0
}

// compare orders two values of the same normalized type.
func compare(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case primitive.ObjectID:
		y, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x[:], y[:]), true
	}
	return 0, false
}

// compareField sorts missing values first, like Mongo sorts null.
func compareField(a, b bson.Raw, field string) int {
	path := strings.Split(field, ".")
	av, aerr := a.LookupErr(path...)
	bv, berr := b.LookupErr(path...)
	ax, aok := goValue(av)
	bx, bok := goValue(bv)
	aok = aok && aerr == nil
	bok = bok && berr == nil
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	cmp, _ := compare(ax, bx)
	return cmp
}

func pointOf(raw bson.Raw, field string) (float64, float64, bool) {
	path := append(strings.Split(field, "."), "coordinates")
	rv, err := raw.LookupErr(path...)
	if err != nil || rv.Type != bsontype.Array {
		return 0, 0, false
	}
	vals, err := rv.Array().Values()
	if err != nil || len(vals) != 2 {
		return 0, 0, false
	}
	lng, ok1 := goValue(vals[0])
	lat, ok2 := goValue(vals[1])
	x, okx := lng.(float64)
	y, oky := lat.(float64)
	if !ok1 || !ok2 || !okx || !oky {
		return 0, 0, false
	}
	return x, y, true
}

// centralAngle returns the angle in radians between two lng/lat points.
func centralAngle(lng1, lat1, lng2, lat2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}
