package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
)

type ReviewStats struct {
	coll *mongo.Collection
}

func NewReviewStats(db *mongo.Database) *ReviewStats {
	return &ReviewStats{coll: db.Collection(repository.Reviews)}
}

func (s *ReviewStats) RatingStats(ctx context.Context, tourID primitive.ObjectID) (repository.RatingStats, bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "tour", Value: tourID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tour"},
			{Key: "nRating", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return repository.RatingStats{}, false, fmt.Errorf("review stats: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var rows []struct {
		NRating   int     `bson:"nRating"`
		AvgRating float64 `bson:"avgRating"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return repository.RatingStats{}, false, fmt.Errorf("review stats decode: %w", err)
	}
	if len(rows) == 0 {
		return repository.RatingStats{}, false, nil
	}
	return repository.RatingStats{Quantity: rows[0].NRating, Average: rows[0].AvgRating}, true, nil
}
