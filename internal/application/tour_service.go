package application

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

const (
	earthRadiusMi = 3963.2
	earthRadiusKm = 6378.1

	metersToMiles = 0.000621371
	metersToKm    = 0.001

	defaultSearchSize = 10
	maxSearchSize     = 50
)

// TourService holds the tour reports that go beyond generic CRUD.
type TourService struct {
	tours *Resource[entity.Tour]
	index SearchIndex
}

func NewTourService(tours *Resource[entity.Tour], index SearchIndex) *TourService {
	return &TourService{tours: tours, index: index}
}

// TopCheapParams rewrites params into the five best rated, cheapest tours.
func TopCheapParams(params url.Values) url.Values {
	out := url.Values{}
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	out.Set("limit", "5")
	out.Set("sort", "-ratingsAverage,price")
	out.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return out
}

type TourStat struct {
	Difficulty string  `bson:"_id" json:"_id"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

// Stats groups well rated tours by difficulty.
func (s *TourService) Stats(ctx context.Context) ([]TourStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "ratingsAverage", Value: bson.D{{Key: "$gte", Value: 4.5}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$toUpper", Value: "$difficulty"}}},
			{Key: "numTours", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "numRatings", Value: bson.D{{Key: "$sum", Value: "$ratingsQuantity"}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$ratingsAverage"}}},
			{Key: "avgPrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
			{Key: "minPrice", Value: bson.D{{Key: "$min", Value: "$price"}}},
			{Key: "maxPrice", Value: bson.D{{Key: "$max", Value: "$price"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgPrice", Value: 1}}}},
	}
	out := []TourStat{}
	if err := s.tours.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type MonthPlan struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

// MonthlyPlan counts tour starts per month of year, busiest month first.
func (s *TourService) MonthlyPlan(ctx context.Context, year string) ([]MonthPlan, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 || y > 9999 {
		return nil, apperror.FieldError("year", "must be a four digit year")
	}
	from := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.D{{Key: "startDates", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lte", Value: to},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$month", Value: "$startDates"}}},
			{Key: "numTourStarts", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "tours", Value: bson.D{{Key: "$push", Value: "$name"}}},
		}}},
		{{Key: "$addFields", Value: bson.D{{Key: "month", Value: "$_id"}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}}}},
		{{Key: "$limit", Value: 12}},
	}
	out := []MonthPlan{}
	if err := s.tours.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Within lists tours whose start location lies within distance of latlng.
func (s *TourService) Within(ctx context.Context, distance, latlng, unit string) ([]*entity.Tour, error) {
	lat, lng, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil || d < 0 {
		return nil, apperror.FieldError("distance", "must be a non-negative number")
	}
	radius := d / earthRadiusKm
	if unit == "mi" {
		radius = d / earthRadiusMi
	}
	q := query.New().Where("startLocation", query.GeoWithin, query.GeoCircle{Lng: lng, Lat: lat, Radius: radius})
	q.Exclude = []string{query.VersionField}
	return s.tours.Find(ctx, q)
}

type TourDistance struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Distance float64            `bson:"distance" json:"distance"`
}

// Distances reports every tour's distance from latlng, nearest first.
func (s *TourService) Distances(ctx context.Context, latlng, unit string) ([]TourDistance, error) {
	lat, lng, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	multiplier := metersToKm
	if unit == "mi" {
		multiplier = metersToMiles
	}
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: "Point"},
				{Key: "coordinates", Value: bson.A{lng, lat}},
			}},
			{Key: "distanceField", Value: "distance"},
			{Key: "distanceMultiplier", Value: multiplier},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "distance", Value: 1}, {Key: "name", Value: 1}}}},
	}
	out := []TourDistance{}
	if err := s.tours.Aggregate(ctx, pipeline, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search resolves full text hits back to visible tours, in hit order.
func (s *TourService) Search(ctx context.Context, text string, size int) ([]*entity.Tour, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.FieldError("q", "is required")
	}
	if s.index == nil {
		return nil, apperror.New(apperror.Internal, "tour search is not configured")
	}
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	hits, err := s.index.SearchTours(ctx, text, size)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "search tours", err)
	}
	ids := make([]primitive.ObjectID, 0, len(hits))
	for _, h := range hits {
		if oid, err := primitive.ObjectIDFromHex(h); err == nil {
			ids = append(ids, oid)
		}
	}
	if len(ids) == 0 {
		return []*entity.Tour{}, nil
	}
	q := query.New().Where("_id", query.In, ids)
	q.Exclude = []string{query.VersionField}
	found, err := s.tours.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*entity.Tour, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	out := make([]*entity.Tour, 0, len(found))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func parseLatLng(s string) (lat, lng float64, err error) {
	bad := apperror.FieldError("latlng", "please provide latitude and longitude in the format lat,lng")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, bad
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, bad
	}
	return lat, lng, nil
}
