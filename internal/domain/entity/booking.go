package entity

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking is written by the payment flow after a successful checkout.
type Booking struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TourID    primitive.ObjectID `bson:"tour" json:"tour,omitempty" validate:"required"`
	UserID    primitive.ObjectID `bson:"user" json:"user,omitempty" validate:"required"`
	Price     float64            `bson:"price" json:"price,omitempty" validate:"required,gt=0"`
	Paid      bool               `bson:"paid" json:"paid"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt,omitempty"`
	Version   int                `bson:"__v" json:"__v,omitempty"`

	Tour *Tour `bson:"-" json:"-"`
	User *User `bson:"-" json:"-"`
}

func NewBooking() *Booking {
	return &Booking{Paid: true}
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	out := struct {
		alias
		Tour any `json:"tour,omitempty"`
		User any `json:"user,omitempty"`
	}{alias: alias(b)}
	if b.Tour != nil {
		out.Tour = b.Tour
	} else if !b.TourID.IsZero() {
		out.Tour = b.TourID
	}
	if b.User != nil {
		out.User = b.User
	} else if !b.UserID.IsZero() {
		out.User = b.UserID
	}
	return json.Marshal(out)
}
