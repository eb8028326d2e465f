package application

import (
	"context"
	"expvar"
	"math"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
)

var recomputeFailures = expvar.NewInt("ratings_recompute_failures")

// RatingsMaintainer keeps Tour.ratingsAverage and Tour.ratingsQuantity equal
// to the statistics of the tour's reviews. Every recompute is absolute.
type RatingsMaintainer struct {
	stats  repository.ReviewStats
	tours  repository.Collection[entity.Tour]
	logger *logrus.Logger
}

func NewRatingsMaintainer(stats repository.ReviewStats, tours repository.Collection[entity.Tour], logger *logrus.Logger) *RatingsMaintainer {
	return &RatingsMaintainer{stats: stats, tours: tours, logger: logger}
}

// Recompute writes the current statistics onto the tour. The write goes to the
// store directly: the rating fields are not client mutable, and secret tours
// must be updated too.
func (m *RatingsMaintainer) Recompute(ctx context.Context, tourID primitive.ObjectID) (repository.RatingStats, error) {
	stats, ok, err := m.stats.RatingStats(ctx, tourID)
	if err != nil {
		return repository.RatingStats{}, err
	}
	if !ok {
		stats = repository.RatingStats{Quantity: 0, Average: entity.DefaultRatingsAverage}
	} else {
		stats.Average = math.Round(stats.Average*10) / 10
	}
	_, err = m.tours.UpdateOne(ctx,
		[]query.Condition{{Field: "_id", Op: query.Eq, Value: tourID}},
		map[string]any{"ratingsQuantity": stats.Quantity, "ratingsAverage": stats.Average},
		nil,
	)
	if err != nil {
		return repository.RatingStats{}, err
	}
	return stats, nil
}

// OnReviewChange is the post-commit listener for review writes. Failures are
// logged and counted; the review write has already succeeded.
func (m *RatingsMaintainer) OnReviewChange(ctx context.Context, ch Change[entity.Review]) {
	ids := map[primitive.ObjectID]bool{}
	if ch.Doc != nil && !ch.Doc.TourID.IsZero() {
		ids[ch.Doc.TourID] = true
	}
	if ch.Prev != nil && !ch.Prev.TourID.IsZero() {
		ids[ch.Prev.TourID] = true
	}
	for id := range ids {
		stats, err := m.Recompute(ctx, id)
		if err != nil {
			recomputeFailures.Add(1)
			orStd(m.logger).WithError(err).WithFields(logrus.Fields{"tour_id": id.Hex(), "op": string(ch.Op)}).Error("ratings recompute failed")
			continue
		}
		orStd(m.logger).WithFields(logrus.Fields{
			"tour_id":  id.Hex(),
			"quantity": stats.Quantity,
			"average":  stats.Average,
		}).Debug("ratings recomputed")
	}
}
