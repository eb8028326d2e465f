package application

import (
	"context"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/hooks"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
)

var tourSchema = query.Schema{
	"_id":             query.ID,
	"name":            query.String,
	"slug":            query.String,
	"duration":        query.Number,
	"maxGroupSize":    query.Number,
	"difficulty":      query.String,
	"ratingsAverage":  query.Number,
	"ratingsQuantity": query.Number,
	"price":           query.Number,
	"priceDiscount":   query.Number,
	"summary":         query.String,
	"secretTour":      query.Bool,
	"startDates":      query.Time,
	"createdAt":       query.Time,
	"guides":          query.ID,
}

var tourMutable = []string{
	"name", "duration", "maxGroupSize", "difficulty", "price", "priceDiscount",
	"summary", "description", "imageCover", "images", "startDates", "secretTour",
	"startLocation", "locations", "guides",
}

const (
	PopulateGuides  = "guides"
	PopulateReviews = "reviews"
	PopulateUser    = "user"
	PopulateTour    = "tour"
)

// NewTourResource wires the tour hooks. index may be nil.
func NewTourResource(store repository.Collection[entity.Tour], users *Resource[entity.User], reviews *Resource[entity.Review], index SearchIndex, logger *logrus.Logger) *Resource[entity.Tour] {
	reg := hooks.NewRegistry[entity.Tour]().
		On("trim-name", trimTourName, hooks.BeforeCreate, hooks.BeforeUpdate).
		On("slug", tourSlug, hooks.BeforeCreate, hooks.BeforeUpdate).
		On("hide-secret", hideSecretTours, hooks.BeforeRead).
		On("populate-guides", populateGuides, hooks.BeforeRead).
		On("query-timing", logQueryTime[entity.Tour], hooks.AfterRead).
		On("hide-secret-aggregate", hideSecretInPipeline, hooks.BeforeAggregate)
	if index != nil {
		reg.On("search-index", indexTour(index), hooks.AfterCreate, hooks.AfterUpdate).
			On("search-unindex", unindexTour(index), hooks.AfterDelete)
	}

	r := NewResource(Descriptor[entity.Tour]{
		Name:    "tour",
		Schema:  tourSchema,
		Mutable: tourMutable,
		New:     entity.NewTour,
		Hooks:   reg,
	}, store, logger)
	r.SetPopulator(PopulateGuides, guidesPopulator(users))
	if reviews != nil {
		r.SetPopulator(PopulateReviews, reviewsPopulator(reviews))
	}
	return r
}

func trimTourName(_ *hooks.OpContext, ev *hooks.Event[entity.Tour]) error {
	if ev.Changed.Has("name") {
		ev.Doc.Name = strings.TrimSpace(ev.Doc.Name)
	}
	return nil
}

func tourSlug(_ *hooks.OpContext, ev *hooks.Event[entity.Tour]) error {
	if !ev.Changed.Has("name") {
		return nil
	}
	ev.Doc.Slug = slug.Make(ev.Doc.Name)
	ev.Changed.Touch("slug")
	return nil
}

func hideSecretTours(_ *hooks.OpContext, ev *hooks.Event[entity.Tour]) error {
	ev.Query.Prepend("secretTour", query.Ne, true)
	return nil
}

func populateGuides(_ *hooks.OpContext, ev *hooks.Event[entity.Tour]) error {
	ev.Query.WithPopulate(PopulateGuides)
	return nil
}

func logQueryTime[T any](oc *hooks.OpContext, ev *hooks.Event[T]) error {
	oc.Log().WithFields(logrus.Fields{
		"results":    len(ev.Results),
		"elapsed_ms": time.Since(oc.Started).Milliseconds(),
	}).Debug("query finished")
	return nil
}

// hideSecretInPipeline keeps $geoNear first, as Mongo requires, by merging the
// predicate into its query option instead of prepending a $match.
func hideSecretInPipeline(_ *hooks.OpContext, ev *hooks.Event[entity.Tour]) error {
	notSecret := bson.D{{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}}}
	p := *ev.Pipeline
	if len(p) > 0 && len(p[0]) > 0 && p[0][0].Key == "$geoNear" {
		opts, _ := p[0][0].Value.(bson.D)
		merged := make(bson.D, 0, len(opts)+1)
		found := false
		for _, e := range opts {
			if e.Key == "query" {
				found = true
				e.Value = bson.D{{Key: "$and", Value: bson.A{e.Value, notSecret}}}
			}
			merged = append(merged, e)
		}
		if !found {
			merged = append(merged, bson.E{Key: "query", Value: notSecret})
		}
		p[0] = bson.D{{Key: "$geoNear", Value: merged}}
		return nil
	}
	*ev.Pipeline = append(mongo.Pipeline{{{Key: "$match", Value: notSecret}}}, p...)
	return nil
}

func indexTour(index SearchIndex) hooks.Func[entity.Tour] {
	return func(oc *hooks.OpContext, ev *hooks.Event[entity.Tour]) error {
		if err := index.IndexTour(oc.Ctx, ev.Doc); err != nil {
			oc.Log().WithError(err).WithField("tour_id", ev.Doc.ID.Hex()).Warn("tour index failed")
		}
		return nil
	}
}

func unindexTour(index SearchIndex) hooks.Func[entity.Tour] {
	return func(oc *hooks.OpContext, ev *hooks.Event[entity.Tour]) error {
		if err := index.RemoveTour(oc.Ctx, ev.Doc.ID.Hex()); err != nil {
			oc.Log().WithError(err).WithField("tour_id", ev.Doc.ID.Hex()).Warn("tour unindex failed")
		}
		return nil
	}
}

// guidesPopulator reads guides through the user resource, so inactive users
// never show up, and keeps the order of Tour.GuideIDs.
func guidesPopulator(users *Resource[entity.User]) Populator[entity.Tour] {
	return func(ctx context.Context, tours []*entity.Tour) error {
		var ids []primitive.ObjectID
		for _, t := range tours {
			ids = append(ids, t.GuideIDs...)
		}
		byID := map[primitive.ObjectID]*entity.User{}
		if len(ids) > 0 {
			q := query.New().Where("_id", query.In, ids)
			q.Include = entity.UserPublicFields
			found, err := users.Find(ctx, q)
			if err != nil {
				return err
			}
			for _, u := range found {
				byID[u.ID] = u
			}
		}
		for _, t := range tours {
			t.Guides = make([]*entity.User, 0, len(t.GuideIDs))
			for _, id := range t.GuideIDs {
				if u, ok := byID[id]; ok {
					t.Guides = append(t.Guides, u)
				}
			}
		}
		return nil
	}
}

// reviewsPopulator attaches each tour's reviews, read through the review
// resource so their authors get populated as well.
func reviewsPopulator(reviews *Resource[entity.Review]) Populator[entity.Tour] {
	return func(ctx context.Context, tours []*entity.Tour) error {
		ids := make([]primitive.ObjectID, 0, len(tours))
		for _, t := range tours {
			ids = append(ids, t.ID)
		}
		q := query.New().Where("tour", query.In, ids)
		q.Sort = []query.SortField{{Field: "createdAt"}, {Field: "_id"}}
		q.Exclude = []string{query.VersionField}
		found, err := reviews.Find(ctx, q)
		if err != nil {
			return err
		}
		byTour := map[primitive.ObjectID][]*entity.Review{}
		for _, rv := range found {
			byTour[rv.TourID] = append(byTour[rv.TourID], rv)
		}
		for _, t := range tours {
			t.Reviews = byTour[t.ID]
			if t.Reviews == nil {
				t.Reviews = []*entity.Review{}
			}
		}
		return nil
	}
}
