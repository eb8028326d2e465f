package container

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/memory"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/mongodb"
)

// Stores is one collection per entity plus the review statistics query, all
// backed by the same driver.
type Stores struct {
	Users       repository.Collection[entity.User]
	Tours       repository.Collection[entity.Tour]
	Reviews     repository.Collection[entity.Review]
	Bookings    repository.Collection[entity.Booking]
	ReviewStats repository.ReviewStats

	ensure func(ctx context.Context) error
}

// EnsureIndexes creates the declared indexes; a no-op for stores that
// enforce them in process.
func (s *Stores) EnsureIndexes(ctx context.Context) error {
	if s.ensure == nil {
		return nil
	}
	return s.ensure(ctx)
}

func NewMongoStores(db *mongo.Database) *Stores {
	users := mongodb.NewCollection[entity.User](db, repository.Users, repository.UserIndexes...)
	tours := mongodb.NewCollection[entity.Tour](db, repository.Tours, repository.TourIndexes...)
	reviews := mongodb.NewCollection[entity.Review](db, repository.Reviews, repository.ReviewIndexes...)
	bookings := mongodb.NewCollection[entity.Booking](db, repository.Bookings, repository.BookingIndexes...)
	return &Stores{
		Users:       users,
		Tours:       tours,
		Reviews:     reviews,
		Bookings:    bookings,
		ReviewStats: mongodb.NewReviewStats(db),
		ensure: func(ctx context.Context) error {
			for _, e := range []interface{ EnsureIndexes(context.Context) error }{users, tours, reviews, bookings} {
				if err := e.EnsureIndexes(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func NewMemoryStores() *Stores {
	reviews := memory.NewCollection[entity.Review](repository.Reviews, repository.ReviewIndexes...)
	return &Stores{
		Users:       memory.NewCollection[entity.User](repository.Users, repository.UserIndexes...),
		Tours:       memory.NewCollection[entity.Tour](repository.Tours, repository.TourIndexes...),
		Reviews:     reviews,
		Bookings:    memory.NewCollection[entity.Booking](repository.Bookings, repository.BookingIndexes...),
		ReviewStats: memory.NewReviewStats(reviews),
	}
}
