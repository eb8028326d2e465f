package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/oksasatya/go-tour-booking/internal/domain/query"
)

func TestFilter_MergesOperatorsPerField(t *testing.T) {
	f := Filter([]query.Condition{
		{Field: "secretTour", Op: query.Ne, Value: true},
		{Field: "price", Op: query.Gte, Value: 500.0},
		{Field: "price", Op: query.Lt, Value: 1500.0},
	})

	assert.Equal(t, bson.D{
		{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}},
		{Key: "price", Value: bson.D{{Key: "$gte", Value: 500.0}, {Key: "$lt", Value: 1500.0}}},
	}, f)
}

func TestFilter_RepeatedOperatorUsesAnd(t *testing.T) {
	f := Filter([]query.Condition{
		{Field: "active", Op: query.Ne, Value: false},
		{Field: "active", Op: query.Ne, Value: nil},
	})

	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "active", Value: bson.D{{Key: "$ne", Value: false}}}},
		bson.D{{Key: "active", Value: bson.D{{Key: "$ne", Value: nil}}}},
	}}}, f)
}

func TestFilter_GeoWithin(t *testing.T) {
	f := Filter([]query.Condition{{
		Field: "startLocation",
		Op:    query.GeoWithin,
		Value: query.GeoCircle{Lng: -118.11, Lat: 34.11, Radius: 0.05},
	}})

	assert.Equal(t, bson.D{{Key: "startLocation", Value: bson.D{{
		Key: "$geoWithin",
		Value: bson.D{{
			Key:   "$centerSphere",
			Value: bson.A{bson.A{-118.11, 34.11}, 0.05},
		}},
	}}}}, f)
}

func TestFilter_Empty(t *testing.T) {
	assert.Equal(t, bson.D{}, Filter(nil))
}

func TestSortAndProjection(t *testing.T) {
	assert.Nil(t, Sort(nil))
	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}},
		Sort([]query.SortField{{Field: "price", Desc: true}, {Field: "_id"}}))

	assert.Nil(t, Projection(nil, nil))
	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, Projection([]string{"name"}, nil))
	assert.Equal(t, bson.D{{Key: "__v", Value: 0}}, Projection(nil, []string{"__v"}))
}
