package query

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

var tourSchema = Schema{
	"name":           String,
	"price":          Number,
	"duration":       Number,
	"difficulty":     String,
	"ratingsAverage": Number,
	"secretTour":     Bool,
	"createdAt":      Time,
}

func TestFilter_TranslatesRangeOperators(t *testing.T) {
	params := url.Values{
		"price[gte]": {"500"},
		"duration":   {"5"},
		"page":       {"2"},
		"sort":       {"price"},
		"limit":      {"3"},
		"fields":     {"name"},
	}
	f := NewFeatures(tourSchema, params).Filter()
	require.NoError(t, f.Err())

	assert.Equal(t, []Condition{
		{Field: "duration", Op: Eq, Value: float64(5)},
		{Field: "price", Op: Gte, Value: float64(500)},
	}, f.Query.Conditions)
	assert.Empty(t, f.Query.Sort, "filter alone must not touch sort")
	assert.Zero(t, f.Query.Limit)
}

func TestFilter_DottedOperatorForm(t *testing.T) {
	f := NewFeatures(tourSchema, url.Values{"ratingsAverage.lt": {"4.7"}}).Filter()
	require.NoError(t, f.Err())
	assert.Equal(t, []Condition{{Field: "ratingsAverage", Op: Lt, Value: 4.7}}, f.Query.Conditions)
}

func TestFilter_RepeatedEqualityBecomesIn(t *testing.T) {
	f := NewFeatures(tourSchema, url.Values{"difficulty": {"easy", "medium"}}).Filter()
	require.NoError(t, f.Err())
	assert.Equal(t, []Condition{{Field: "difficulty", Op: In, Value: []any{"easy", "medium"}}}, f.Query.Conditions)
}

func TestFilter_RejectsUnknownOperators(t *testing.T) {
	for _, key := range []string{"price[$where]", "price[ne]", "price[regex]", "price[]"} {
		f := NewFeatures(tourSchema, url.Values{key: {"1"}}).Filter()
		require.Error(t, f.Err(), key)
		assert.Equal(t, apperror.ValidationFailed, apperror.KindOf(f.Err()), key)
	}
}

func TestFilter_RejectsUndeclaredFieldsAndBadValues(t *testing.T) {
	f := NewFeatures(tourSchema, url.Values{"password": {"x"}}).Filter()
	assert.True(t, apperror.IsKind(f.Err(), apperror.ValidationFailed))

	f = NewFeatures(tourSchema, url.Values{"price[lt]": {"cheap"}}).Filter()
	assert.True(t, apperror.IsKind(f.Err(), apperror.ValidationFailed))

	f = NewFeatures(tourSchema, url.Values{"$where": {"1"}}).Filter()
	assert.True(t, apperror.IsKind(f.Err(), apperror.ValidationFailed))
}

func TestSort_DefaultsAndDirection(t *testing.T) {
	f := NewFeatures(tourSchema, url.Values{}).Sort()
	require.NoError(t, f.Err())
	assert.Equal(t, []SortField{{Field: "createdAt"}, {Field: "_id"}}, f.Query.Sort)

	f = NewFeatures(tourSchema, url.Values{"sort": {"-ratingsAverage,price"}}).Sort()
	require.NoError(t, f.Err())
	assert.Equal(t, []SortField{
		{Field: "ratingsAverage", Desc: true},
		{Field: "price"},
		{Field: "_id"},
	}, f.Query.Sort)

	f = NewFeatures(tourSchema, url.Values{"sort": {"-_id"}}).Sort()
	require.NoError(t, f.Err())
	assert.Equal(t, []SortField{{Field: "_id", Desc: true}}, f.Query.Sort)

	f = NewFeatures(tourSchema, url.Values{"sort": {"passwordResetToken"}}).Sort()
	assert.True(t, apperror.IsKind(f.Err(), apperror.ValidationFailed))
}

func TestLimitFields(t *testing.T) {
	f := NewFeatures(tourSchema, url.Values{}).LimitFields()
	assert.Equal(t, []string{VersionField}, f.Query.Exclude)
	assert.Empty(t, f.Query.Include)

	f = NewFeatures(tourSchema, url.Values{"fields": {"name, duration,price"}}).LimitFields()
	require.NoError(t, f.Err())
	assert.Equal(t, []string{"name", "duration", "price"}, f.Query.Include)
	assert.Empty(t, f.Query.Exclude)

	f = NewFeatures(tourSchema, url.Values{"fields": {"-summary"}}).LimitFields()
	require.NoError(t, f.Err())
	assert.Equal(t, []string{"summary"}, f.Query.Exclude)

	f = NewFeatures(tourSchema, url.Values{"fields": {"name,-summary"}}).LimitFields()
	assert.True(t, apperror.IsKind(f.Err(), apperror.ValidationFailed))

	f = NewFeatures(tourSchema, url.Values{"fields": {"$where"}}).LimitFields()
	assert.True(t, apperror.IsKind(f.Err(), apperror.ValidationFailed))
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		name        string
		page, limit string
		skip, want  int64
	}{
		{"defaults", "", "", 0, 100},
		{"third page", "3", "10", 20, 10},
		{"page below one", "0", "10", 0, 10},
		{"negative page", "-4", "10", 0, 10},
		{"garbage", "abc", "xyz", 0, 100},
		{"capped limit", "1", "100000", 0, MaxLimit},
		{"far page is not an error", "9999", "5", 49990, 5},
		{"overflowing page", "9223372036854775807", "2", math.MaxInt64, 2},
		{"last safe page", "4611686018427387904", "2", math.MaxInt64 - 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFeatures(tourSchema, url.Values{"page": {tc.page}, "limit": {tc.limit}}).Paginate()
			require.NoError(t, f.Err())
			assert.Equal(t, tc.skip, f.Query.Skip)
			assert.Equal(t, tc.want, f.Query.Limit)
		})
	}
}

func TestApply_IsDeterministic(t *testing.T) {
	params := url.Values{"price[lte]": {"1500"}, "difficulty": {"easy"}, "sort": {"-price"}, "page": {"2"}, "limit": {"2"}}

	first, err := NewFeatures(tourSchema, params).Apply()
	require.NoError(t, err)
	second, err := NewFeatures(tourSchema, params).Apply()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(2), first.Skip)
}

func TestApply_StickyError(t *testing.T) {
	q, err := NewFeatures(tourSchema, url.Values{"price[bogus]": {"1"}, "sort": {"price"}}).Apply()
	assert.Nil(t, q)
	assert.True(t, apperror.IsKind(err, apperror.ValidationFailed))
}

func TestOn_ReusesExistingQuery(t *testing.T) {
	base := New().Where("tour", Eq, "abc")
	f := NewFeatures(tourSchema, url.Values{"price[gt]": {"10"}}).On(base).Filter()
	require.NoError(t, f.Err())
	assert.Len(t, base.Conditions, 2)
	assert.Equal(t, "tour", base.Conditions[0].Field)
}
