package application

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/hooks"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

func TestTour_CreateDerivesSlugAndTrimsName(t *testing.T) {
	f := newFixture(t)
	tour := f.tour(t, "  Ten Day Forest Adventure ", 1200)
	assert.Equal(t, "Ten Day Forest Adventure", tour.Name)
	assert.Equal(t, "ten-day-forest-adventure", tour.Slug)

	updated, err := f.tours.Update(context.Background(), tour.ID.Hex(), map[string]any{"name": "The Northern Lights"})
	require.NoError(t, err)
	assert.Equal(t, "the-northern-lights", updated.Slug)
}

func TestTour_CreateValidatesBeforeHooks(t *testing.T) {
	f := newFixture(t)
	tr := entity.NewTour()
	tr.Name = "Short"
	_, err := f.tours.Create(context.Background(), tr)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
	assert.Equal(t, 0, f.tourStore.Len())
}

func TestTour_NameIsCheckedAfterTrimming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := entity.NewTour()
	tr.Name, tr.Duration, tr.MaxGroupSize = "      Abc       ", 5, 10
	tr.Difficulty, tr.Price, tr.Summary, tr.ImageCover = entity.Easy, 100, "padded", "c.jpg"
	_, err := f.tours.Create(ctx, tr)
	require.Error(t, err)
	var ae *apperror.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperror.ValidationFailed, ae.Kind)
	assert.Contains(t, ae.Fields, "name")
	assert.Equal(t, 0, f.tourStore.Len())

	tour := f.tour(t, "Ten Day Forest Adventure", 1200)
	_, err = f.tours.Update(ctx, tour.ID.Hex(), map[string]any{"name": "     Short      "})
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
	got, err := f.tours.ReadOne(ctx, tour.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Ten Day Forest Adventure", got.Name)
}

func TestTour_UniqueName(t *testing.T) {
	f := newFixture(t)
	f.tour(t, "The Forest Hiker", 397)
	tr := entity.NewTour()
	tr.Name, tr.Duration, tr.MaxGroupSize = "The Forest Hiker", 5, 10
	tr.Difficulty, tr.Price, tr.Summary, tr.ImageCover = entity.Easy, 100, "again", "c.jpg"
	_, err := f.tours.Create(context.Background(), tr)
	assert.True(t, apperror.IsKind(err, apperror.ConstraintViolation))
}

func TestTour_UpdateIgnoresNonMutableFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := f.tour(t, "Ten Day Forest Adventure", 1200)

	updated, err := f.tours.Update(ctx, tour.ID.Hex(), map[string]any{
		"price":           1500,
		"ratingsAverage":  1,
		"ratingsQuantity": 99,
		"slug":            "hijacked",
	})
	require.NoError(t, err)
	assert.Equal(t, 1500.0, updated.Price)
	assert.Equal(t, entity.DefaultRatingsAverage, updated.RatingsAverage)
	assert.Equal(t, 0, updated.RatingsQuantity)
	assert.Equal(t, "ten-day-forest-adventure", updated.Slug)
	assert.Equal(t, 1, updated.Version)
}

func TestTour_UpdateRevalidates(t *testing.T) {
	f := newFixture(t)
	tour := f.tour(t, "Ten Day Forest Adventure", 1200)
	_, err := f.tours.Update(context.Background(), tour.ID.Hex(), map[string]any{"priceDiscount": 2000})
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
}

func TestTour_SecretToursAreInvisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	public := f.tour(t, "The Forest Hiker", 397)
	secret := f.tour(t, "The Secret Passage", 2000)
	_, err := f.tours.Update(ctx, secret.ID.Hex(), map[string]any{"secretTour": true})
	require.NoError(t, err)

	items, n, err := f.tours.ReadMany(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, public.ID, items[0].ID)

	_, err = f.tours.ReadOne(ctx, secret.ID.Hex())
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
	_, err = f.tours.Update(ctx, secret.ID.Hex(), map[string]any{"price": 1})
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
	err = f.tours.Delete(ctx, secret.ID.Hex())
	assert.True(t, apperror.IsKind(err, apperror.NotFound))

	assert.Equal(t, 2, f.tourStore.Len())
}

func TestTour_MalformedIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.tours.ReadOne(context.Background(), "not-an-id")
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
	assert.True(t, apperror.IsKind(f.tours.Delete(context.Background(), "123"), apperror.NotFound))
}

func TestTour_ReadManyRejectsUndeclaredFilters(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.tours.ReadMany(context.Background(), url.Values{"password": {"x"}})
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
}

func TestTour_ReadManyFiltersSortsAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tour(t, "The Forest Hiker", 397)
	f.tour(t, "The Sea Explorer", 497)
	f.tour(t, "The Snow Adventurer", 997)

	items, n, err := f.tours.ReadMany(ctx, url.Values{"price[lt]": {"900"}, "sort": {"-price"}})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, "The Sea Explorer", items[0].Name)
	assert.Equal(t, "The Forest Hiker", items[1].Name)

	items, _, err = f.tours.ReadMany(ctx, url.Values{"sort": {"price"}, "limit": {"1"}, "page": {"2"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "The Sea Explorer", items[0].Name)

	items, n, err = f.tours.ReadMany(ctx, url.Values{"page": {"9223372036854775807"}, "limit": {"2"}})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, n)
}

func TestTour_TopCheapAlias(t *testing.T) {
	f := newFixture(t)
	for i, name := range []string{"The Forest Hiker", "The Sea Explorer", "The Snow Adventurer",
		"The City Wanderer", "The Park Camper", "The Sports Lover"} {
		f.tour(t, name, float64(100*(i+1)))
	}
	items, n, err := f.tours.ReadMany(context.Background(), TopCheapParams(url.Values{"limit": {"50"}}))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 100.0, items[0].Price)
	assert.Empty(t, items[0].ImageCover, "field limiting keeps only the alias fields")
}

func TestTour_ReadOnePopulatesGuidesInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := f.user(t, "Lead", "lead@example.com", entity.RoleLeadGuide)
	guide := f.user(t, "Guide", "guide@example.com", entity.RoleGuide)
	tour := f.tour(t, "The Forest Hiker", 397)
	_, err := f.tours.Update(ctx, tour.ID.Hex(), map[string]any{"guides": []string{guide.ID.Hex(), lead.ID.Hex()}})
	require.NoError(t, err)

	got, err := f.tours.ReadOne(ctx, tour.ID.Hex(), PopulateReviews)
	require.NoError(t, err)
	require.Len(t, got.Guides, 2)
	assert.Equal(t, "Guide", got.Guides[0].Name)
	assert.Equal(t, "Lead", got.Guides[1].Name)
	assert.Empty(t, got.Guides[0].Password)
	assert.NotNil(t, got.Reviews)
}

func TestTour_WithinFindsNearbyStarts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	near := f.tour(t, "The Forest Hiker", 397)
	far := f.tour(t, "The Sea Explorer", 497)
	_, err := f.tours.Update(ctx, near.ID.Hex(), map[string]any{
		"startLocation": map[string]any{"type": "Point", "coordinates": []float64{-118.11, 34.11}},
	})
	require.NoError(t, err)
	_, err = f.tours.Update(ctx, far.ID.Hex(), map[string]any{
		"startLocation": map[string]any{"type": "Point", "coordinates": []float64{-80.18, 25.77}},
	})
	require.NoError(t, err)

	svc := NewTourService(f.tours, nil)
	got, err := svc.Within(ctx, "200", "34.1,-118.1", "mi")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].ID)

	_, err = svc.Within(ctx, "200", "34.1", "mi")
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
	_, err = svc.Within(ctx, "far", "34.1,-118.1", "km")
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
}

func TestTour_AggregationsNeedADocumentStore(t *testing.T) {
	f := newFixture(t)
	_, err := NewTourService(f.tours, nil).Stats(context.Background())
	assert.True(t, apperror.IsKind(err, apperror.Internal))
}

func TestTour_MonthlyPlanRejectsBadYear(t *testing.T) {
	f := newFixture(t)
	_, err := NewTourService(f.tours, nil).MonthlyPlan(context.Background(), "twenty")
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
}

func runPipelineHook(t *testing.T, p mongo.Pipeline) mongo.Pipeline {
	t.Helper()
	oc := hooks.NewOpContext(context.Background(), "tour", hooks.OpAggregate, nil)
	require.NoError(t, hideSecretInPipeline(oc, &hooks.Event[entity.Tour]{Pipeline: &p}))
	return p
}

func TestHideSecretInPipeline_PrependsMatch(t *testing.T) {
	p := runPipelineHook(t, mongo.Pipeline{{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$difficulty"}}}}})
	require.Len(t, p, 2)
	assert.Equal(t, "$match", p[0][0].Key)
	assert.Equal(t, bson.D{{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}}}, p[0][0].Value)
}

func TestHideSecretInPipeline_KeepsGeoNearFirst(t *testing.T) {
	p := runPipelineHook(t, mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{{Key: "distanceField", Value: "distance"}}}},
		{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}}}},
	})
	require.Len(t, p, 2)
	assert.Equal(t, "$geoNear", p[0][0].Key)
	opts := p[0][0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "query", Value: bson.D{{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}}}}, opts[len(opts)-1])
}

func TestHideSecretInPipeline_MergesExistingGeoNearQuery(t *testing.T) {
	own := bson.D{{Key: "difficulty", Value: "easy"}}
	p := runPipelineHook(t, mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{{Key: "query", Value: own}}}},
	})
	opts := p[0][0].Value.(bson.D)
	require.Len(t, opts, 1)
	and := opts[0].Value.(bson.D)[0]
	assert.Equal(t, "$and", and.Key)
	assert.Len(t, and.Value.(bson.A), 2)
}
