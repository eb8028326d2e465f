package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
)

type ReviewStats struct {
	reviews *Collection[entity.Review]
}

func NewReviewStats(reviews *Collection[entity.Review]) *ReviewStats {
	return &ReviewStats{reviews: reviews}
}

// RatingStats groups the reviews of tourID; ok is false when there are none.
func (s *ReviewStats) RatingStats(ctx context.Context, tourID primitive.ObjectID) (repository.RatingStats, bool, error) {
	if err := ctx.Err(); err != nil {
		return repository.RatingStats{}, false, err
	}
	s.reviews.mu.RLock()
	docs := s.reviews.matching([]query.Condition{{Field: "tour", Op: query.Eq, Value: tourID}})
	s.reviews.mu.RUnlock()

	var sum float64
	n := 0
	for _, raw := range docs {
		rv, err := raw.LookupErr("rating")
		if err != nil {
			continue
		}
		if v, ok := goValue(rv); ok {
			if f, ok := v.(float64); ok {
				sum += f
				n++
			}
		}
	}
	if n == 0 {
		return repository.RatingStats{}, false, nil
	}
	return repository.RatingStats{Quantity: n, Average: sum / float64(n)}, true, nil
}

var _ repository.ReviewStats = (*ReviewStats)(nil)
