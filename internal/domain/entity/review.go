package entity

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review references exactly one tour and one user; (tour, user) is unique.
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Review    string             `bson:"review" json:"review,omitempty" validate:"required,max=100"`
	Rating    int                `bson:"rating" json:"rating,omitempty" validate:"required,min=1,max=5"`
	TourID    primitive.ObjectID `bson:"tour" json:"tour,omitempty" validate:"required"`
	UserID    primitive.ObjectID `bson:"user" json:"user,omitempty" validate:"required"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt,omitempty"`
	Version   int                `bson:"__v" json:"__v,omitempty"`

	User *User `bson:"-" json:"-"`
}

func (r Review) MarshalJSON() ([]byte, error) {
	type alias Review
	out := struct {
		alias
		User any `json:"user,omitempty"`
	}{alias: alias(r)}
	if r.User != nil {
		out.User = r.User
	} else if !r.UserID.IsZero() {
		out.User = r.UserID
	}
	return json.Marshal(out)
}
