package application

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/hooks"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

var bookingSchema = query.Schema{
	"_id":       query.ID,
	"tour":      query.ID,
	"user":      query.ID,
	"price":     query.Number,
	"paid":      query.Bool,
	"createdAt": query.Time,
}

var bookingMutable = []string{"tour", "user", "price", "paid"}

func NewBookingResource(store repository.Collection[entity.Booking], users *Resource[entity.User], tours *Resource[entity.Tour], logger *logrus.Logger) *Resource[entity.Booking] {
	reg := hooks.NewRegistry[entity.Booking]().
		On("populate-refs", populateBookingRefs, hooks.BeforeRead)

	r := NewResource(Descriptor[entity.Booking]{
		Name:    "booking",
		Schema:  bookingSchema,
		Mutable: bookingMutable,
		New:     entity.NewBooking,
		Hooks:   reg,
	}, store, logger)
	r.SetPopulator(PopulateTour, bookingTourPopulator(tours))
	r.SetPopulator(PopulateUser, bookingUserPopulator(users))
	return r
}

func populateBookingRefs(_ *hooks.OpContext, ev *hooks.Event[entity.Booking]) error {
	ev.Query.WithPopulate(PopulateUser, PopulateTour)
	return nil
}

// bookingTourPopulator reads through the tour resource; bookings of secret
// tours therefore come back without an embedded tour.
func bookingTourPopulator(tours *Resource[entity.Tour]) Populator[entity.Booking] {
	return func(ctx context.Context, bookings []*entity.Booking) error {
		ids := make([]primitive.ObjectID, 0, len(bookings))
		for _, b := range bookings {
			ids = append(ids, b.TourID)
		}
		q := query.New().Where("_id", query.In, ids)
		q.Include = []string{"name"}
		found, err := tours.Find(ctx, q)
		if err != nil {
			return err
		}
		byID := make(map[primitive.ObjectID]*entity.Tour, len(found))
		for _, t := range found {
			byID[t.ID] = t
		}
		for _, b := range bookings {
			b.Tour = byID[b.TourID]
		}
		return nil
	}
}

func bookingUserPopulator(users *Resource[entity.User]) Populator[entity.Booking] {
	return func(ctx context.Context, bookings []*entity.Booking) error {
		ids := make([]primitive.ObjectID, 0, len(bookings))
		for _, b := range bookings {
			ids = append(ids, b.UserID)
		}
		q := query.New().Where("_id", query.In, ids)
		q.Include = entity.UserPublicFields
		found, err := users.Find(ctx, q)
		if err != nil {
			return err
		}
		byID := make(map[primitive.ObjectID]*entity.User, len(found))
		for _, u := range found {
			byID[u.ID] = u
		}
		for _, b := range bookings {
			b.User = byID[b.UserID]
		}
		return nil
	}
}

// BookingService covers the caller-facing booking flows.
type BookingService struct {
	bookings *Resource[entity.Booking]
	tours    *Resource[entity.Tour]
	checkout CheckoutProvider
}

func NewBookingService(bookings *Resource[entity.Booking], tours *Resource[entity.Tour], checkout CheckoutProvider) *BookingService {
	return &BookingService{bookings: bookings, tours: tours, checkout: checkout}
}

// MyTours lists the tours the user has booked.
func (s *BookingService) MyTours(ctx context.Context, user *entity.User) ([]*entity.Tour, error) {
	q := query.New().Where("user", query.Eq, user.ID)
	q.Include = []string{"tour"}
	booked, err := s.bookings.Store().Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(booked) == 0 {
		return []*entity.Tour{}, nil
	}
	ids := make([]primitive.ObjectID, 0, len(booked))
	for _, b := range booked {
		ids = append(ids, b.TourID)
	}
	tq := query.New().Where("_id", query.In, ids)
	tq.Exclude = []string{query.VersionField}
	return s.tours.Find(ctx, tq)
}

// CheckoutSession starts a hosted payment for tourID.
func (s *BookingService) CheckoutSession(ctx context.Context, user *entity.User, tourID, successURL, cancelURL string) (CheckoutSession, error) {
	if s.checkout == nil {
		return CheckoutSession{}, apperror.New(apperror.Internal, "payments are not configured")
	}
	tour, err := s.tours.ReadOne(ctx, tourID)
	if err != nil {
		return CheckoutSession{}, err
	}
	sess, err := s.checkout.CreateSession(ctx, tour, user, successURL, cancelURL)
	if err != nil {
		return CheckoutSession{}, apperror.Wrap(apperror.Internal, "create checkout session", err)
	}
	return sess, nil
}

// Record stores a paid booking once the payment provider confirms it.
func (s *BookingService) Record(ctx context.Context, tourID, userID primitive.ObjectID, price float64) (*entity.Booking, error) {
	b := entity.NewBooking()
	b.TourID, b.UserID, b.Price = tourID, userID, price
	return s.bookings.Create(ctx, b)
}
