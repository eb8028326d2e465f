package entity

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	Easy      = "easy"
	Medium    = "medium"
	Difficult = "difficult"

	DefaultRatingsAverage = 4.5
)

// GeoPoint is an embedded GeoJSON point; Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"len=2"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

// Tour owns its locations and its rating aggregate. RatingsAverage and
// RatingsQuantity are written only by the ratings maintainer.
type Tour struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name            string               `bson:"name" json:"name,omitempty" validate:"required,min=10,max=40"`
	Slug            string               `bson:"slug,omitempty" json:"slug,omitempty"`
	Duration        int                  `bson:"duration" json:"duration,omitempty" validate:"required,gt=0"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize,omitempty" validate:"required,gt=0"`
	Difficulty      string               `bson:"difficulty" json:"difficulty,omitempty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage,omitempty" validate:"omitempty,gte=1,lte=5"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity"`
	Price           float64              `bson:"price" json:"price,omitempty" validate:"required,gt=0"`
	PriceDiscount   float64              `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty" validate:"omitempty,gte=0,ltfield=Price"`
	Summary         string               `bson:"summary" json:"summary,omitempty" validate:"required"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover" json:"imageCover,omitempty" validate:"required"`
	Images          []string             `bson:"images,omitempty" json:"images,omitempty"`
	StartDates      []time.Time          `bson:"startDates,omitempty" json:"startDates,omitempty"`
	SecretTour      bool                 `bson:"secretTour" json:"secretTour,omitempty"`
	StartLocation   *GeoPoint            `bson:"startLocation,omitempty" json:"startLocation,omitempty" validate:"omitempty"`
	Locations       []GeoPoint           `bson:"locations,omitempty" json:"locations,omitempty" validate:"dive"`
	GuideIDs        []primitive.ObjectID `bson:"guides,omitempty" json:"guides,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt,omitempty"`
	Version         int                  `bson:"__v" json:"__v,omitempty"`

	// Populated on read, never stored.
	Guides  []*User   `bson:"-" json:"-"`
	Reviews []*Review `bson:"-" json:"-"`
}

func NewTour() *Tour {
	return &Tour{RatingsAverage: DefaultRatingsAverage}
}

// DurationWeeks is a derived view of Duration.
func (t Tour) DurationWeeks() float64 { return float64(t.Duration) / 7 }

// MarshalJSON emits populated guides in place of their ids and adds virtuals.
func (t Tour) MarshalJSON() ([]byte, error) {
	type alias Tour
	out := struct {
		alias
		Guides        any       `json:"guides,omitempty"`
		Reviews       []*Review `json:"reviews,omitempty"`
		DurationWeeks float64   `json:"durationWeeks,omitempty"`
	}{alias: alias(t), Reviews: t.Reviews, DurationWeeks: t.DurationWeeks()}
	switch {
	case t.Guides != nil:
		out.Guides = t.Guides
	case len(t.GuideIDs) > 0:
		out.Guides = t.GuideIDs
	}
	return json.Marshal(out)
}
