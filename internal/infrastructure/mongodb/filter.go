package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/oksasatya/go-tour-booking/internal/domain/query"
)

var operators = map[query.Op]string{
	query.Eq:  "$eq",
	query.Ne:  "$ne",
	query.Gt:  "$gt",
	query.Gte: "$gte",
	query.Lt:  "$lt",
	query.Lte: "$lte",
	query.In:  "$in",
}

// Filter translates conditions into a Mongo filter. Operators on the same field
// are merged into one document; a repeated operator falls back to $and.
func Filter(where []query.Condition) bson.D {
	out := bson.D{}
	if len(where) == 0 {
		return out
	}
	byField := map[string]bson.D{}
	var order []string
	for _, c := range where {
		e := operator(c)
		ops, seen := byField[c.Field]
		if !seen {
			order = append(order, c.Field)
		}
		for _, existing := range ops {
			if existing.Key == e.Key {
				return conjunction(where)
			}
		}
		byField[c.Field] = append(ops, e)
	}
	for _, f := range order {
		out = append(out, bson.E{Key: f, Value: byField[f]})
	}
	return out
}

func conjunction(where []query.Condition) bson.D {
	and := make(bson.A, 0, len(where))
	for _, c := range where {
		and = append(and, bson.D{{Key: c.Field, Value: bson.D{operator(c)}}})
	}
	return bson.D{{Key: "$and", Value: and}}
}

func operator(c query.Condition) bson.E {
	if c.Op == query.GeoWithin {
		circle, _ := c.Value.(query.GeoCircle)
		return bson.E{Key: "$geoWithin", Value: bson.D{{
			Key:   "$centerSphere",
			Value: bson.A{bson.A{circle.Lng, circle.Lat}, circle.Radius},
		}}}
	}
	name, ok := operators[c.Op]
	if !ok {
		name = "$eq"
	}
	return bson.E{Key: name, Value: c.Value}
}

func Sort(keys []query.SortField) bson.D {
	if len(keys) == 0 {
		return nil
	}
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: k.Field, Value: dir})
	}
	return out
}

func Projection(include, exclude []string) bson.D {
	switch {
	case len(include) > 0:
		out := make(bson.D, 0, len(include))
		for _, f := range include {
			out = append(out, bson.E{Key: f, Value: 1})
		}
		return out
	case len(exclude) > 0:
		out := make(bson.D, 0, len(exclude))
		for _, f := range exclude {
			out = append(out, bson.E{Key: f, Value: 0})
		}
		return out
	}
	return nil
}
