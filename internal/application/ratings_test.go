package application

import (
	"context"
	"expvar"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

func TestRatings_FollowReviewLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReviewService(f.reviews, f.tours)

	tour := f.tour(t, "Ten Day Forest Adventure", 1200)
	assert.Equal(t, 0, tour.RatingsQuantity)
	assert.Equal(t, entity.DefaultRatingsAverage, tour.RatingsAverage)

	alice := f.user(t, "Alice", "alice@example.com", entity.RoleUser)
	bob := f.user(t, "Bob", "bob@example.com", entity.RoleUser)

	a, err := svc.Create(ctx, alice, tour.ID.Hex(), map[string]any{"review": "Loved it", "rating": 5})
	require.NoError(t, err)
	b, err := svc.Create(ctx, bob, tour.ID.Hex(), map[string]any{"review": "Fine", "rating": 3})
	require.NoError(t, err)

	got := f.storedTour(t, tour)
	assert.Equal(t, 2, got.RatingsQuantity)
	assert.Equal(t, 4.0, got.RatingsAverage)

	_, err = f.reviews.Update(ctx, b.ID.Hex(), map[string]any{"rating": 5})
	require.NoError(t, err)
	got = f.storedTour(t, tour)
	assert.Equal(t, 2, got.RatingsQuantity)
	assert.Equal(t, 5.0, got.RatingsAverage)

	require.NoError(t, f.reviews.Delete(ctx, a.ID.Hex()))
	got = f.storedTour(t, tour)
	assert.Equal(t, 1, got.RatingsQuantity)
	assert.Equal(t, 5.0, got.RatingsAverage)

	require.NoError(t, f.reviews.Delete(ctx, b.ID.Hex()))
	got = f.storedTour(t, tour)
	assert.Equal(t, 0, got.RatingsQuantity)
	assert.Equal(t, entity.DefaultRatingsAverage, got.RatingsAverage)
}

func TestRatings_AverageIsRoundedToOneDecimal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReviewService(f.reviews, f.tours)
	tour := f.tour(t, "The Sea Explorer", 500)

	for i, r := range []int{5, 4, 4} {
		u := f.user(t, "Reviewer", string(rune('a'+i))+"@example.com", entity.RoleUser)
		_, err := svc.Create(ctx, u, tour.ID.Hex(), map[string]any{"review": "ok", "rating": r})
		require.NoError(t, err)
	}
	got := f.storedTour(t, tour)
	assert.Equal(t, 3, got.RatingsQuantity)
	assert.Equal(t, 4.3, got.RatingsAverage)
}

func TestRatings_SecondReviewBySameUserIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReviewService(f.reviews, f.tours)
	tour := f.tour(t, "The Snow Adventurer", 900)
	u := f.user(t, "Alice", "alice@example.com", entity.RoleUser)

	_, err := svc.Create(ctx, u, tour.ID.Hex(), map[string]any{"review": "first", "rating": 4})
	require.NoError(t, err)
	_, err = svc.Create(ctx, u, tour.ID.Hex(), map[string]any{"review": "again", "rating": 1})
	assert.True(t, apperror.IsKind(err, apperror.ConstraintViolation))

	got := f.storedTour(t, tour)
	assert.Equal(t, 1, got.RatingsQuantity)
	assert.Equal(t, 4.0, got.RatingsAverage)
}

func TestRatings_SecretToursAreStillMaintained(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := f.tour(t, "The Hidden Valley", 700)
	_, err := f.tours.Update(ctx, tour.ID.Hex(), map[string]any{"secretTour": true})
	require.NoError(t, err)

	u := f.user(t, "Alice", "alice@example.com", entity.RoleUser)
	rv := &entity.Review{Review: "quiet", Rating: 2, TourID: tour.ID, UserID: u.ID}
	_, err = f.reviews.Create(ctx, rv)
	require.NoError(t, err)

	got := f.storedTour(t, tour)
	assert.Equal(t, 1, got.RatingsQuantity)
	assert.Equal(t, 2.0, got.RatingsAverage)
}

func TestRatings_RecomputeFailureIsCountedNotReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour := f.tour(t, "The Desert Runner", 300)
	u := f.user(t, "Alice", "alice@example.com", entity.RoleUser)

	before := expvar.Get("ratings_recompute_failures").(*expvar.Int).Value()
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	f.ratings.OnReviewChange(cancelled, Change[entity.Review]{Doc: &entity.Review{TourID: tour.ID, UserID: u.ID}})
	after := expvar.Get("ratings_recompute_failures").(*expvar.Int).Value()
	assert.Equal(t, before+1, after)
}
