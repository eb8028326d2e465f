package application

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/hooks"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

var reviewSchema = query.Schema{
	"_id":       query.ID,
	"rating":    query.Number,
	"tour":      query.ID,
	"user":      query.ID,
	"createdAt": query.Time,
}

var reviewMutable = []string{"review", "rating"}

// NewReviewResource wires the review hooks and the ratings listener.
// ratings may be nil in tests that do not care about tour aggregates.
func NewReviewResource(store repository.Collection[entity.Review], users *Resource[entity.User], ratings *RatingsMaintainer, logger *logrus.Logger) *Resource[entity.Review] {
	reg := hooks.NewRegistry[entity.Review]().
		On("trim-review", trimReview, hooks.BeforeCreate, hooks.BeforeUpdate).
		On("populate-user", populateReviewUser, hooks.BeforeRead).
		On("query-timing", logQueryTime[entity.Review], hooks.AfterRead)

	r := NewResource(Descriptor[entity.Review]{
		Name:    "review",
		Schema:  reviewSchema,
		Mutable: reviewMutable,
		Hooks:   reg,
	}, store, logger)
	r.SetPopulator(PopulateUser, reviewUserPopulator(users))
	if ratings != nil {
		r.Subscribe(ratings.OnReviewChange)
	}
	return r
}

func trimReview(_ *hooks.OpContext, ev *hooks.Event[entity.Review]) error {
	if ev.Changed.Has("review") {
		ev.Doc.Review = strings.TrimSpace(ev.Doc.Review)
	}
	return nil
}

func populateReviewUser(_ *hooks.OpContext, ev *hooks.Event[entity.Review]) error {
	ev.Query.WithPopulate(PopulateUser)
	return nil
}

func reviewUserPopulator(users *Resource[entity.User]) Populator[entity.Review] {
	return func(ctx context.Context, reviews []*entity.Review) error {
		ids := make([]primitive.ObjectID, 0, len(reviews))
		for _, rv := range reviews {
			ids = append(ids, rv.UserID)
		}
		q := query.New().Where("_id", query.In, ids)
		q.Include = []string{"name", "photo"}
		found, err := users.Find(ctx, q)
		if err != nil {
			return err
		}
		byID := make(map[primitive.ObjectID]*entity.User, len(found))
		for _, u := range found {
			byID[u.ID] = u
		}
		for _, rv := range reviews {
			rv.User = byID[rv.UserID]
		}
		return nil
	}
}

// ReviewService adds the nested-route rules on top of the review resource.
type ReviewService struct {
	reviews *Resource[entity.Review]
	tours   *Resource[entity.Tour]
}

func NewReviewService(reviews *Resource[entity.Review], tours *Resource[entity.Tour]) *ReviewService {
	return &ReviewService{reviews: reviews, tours: tours}
}

// Create takes the tour from the route when present, otherwise from the body,
// and always takes the author from the caller's identity.
func (s *ReviewService) Create(ctx context.Context, author *entity.User, tourID string, body map[string]any) (*entity.Review, error) {
	doc, err := s.reviews.Decode(body)
	if err != nil {
		return nil, err
	}
	if tourID == "" {
		tourID, _ = body["tour"].(string)
	}
	if tourID == "" {
		return nil, apperror.FieldError("tour", "review must belong to a tour")
	}
	tour, err := s.tours.ReadOne(ctx, tourID)
	if err != nil {
		return nil, err
	}
	doc.TourID = tour.ID
	doc.UserID = author.ID
	return s.reviews.Create(ctx, doc)
}

// Scope returns the base conditions for listing reviews under a tour route.
func (s *ReviewService) Scope(tourID string) ([]query.Condition, error) {
	if tourID == "" {
		return nil, nil
	}
	oid, err := ParseID(tourID)
	if err != nil {
		return nil, err
	}
	return []query.Condition{{Field: "tour", Op: query.Eq, Value: oid}}, nil
}
