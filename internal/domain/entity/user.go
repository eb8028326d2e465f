package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultPhoto = "default.jpg"

// User is the aggregate root for accounts.
// Password holds a bcrypt hash at rest; credential fields are owned by the
// credential lifecycle and never serialized outward.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name                 string             `bson:"name" json:"name,omitempty" validate:"required"`
	Email                string             `bson:"email" json:"email,omitempty" validate:"required,email"`
	Photo                string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role                 Role               `bson:"role,omitempty" json:"role,omitempty" validate:"omitempty,oneof=user guide lead-guide admin"`
	Password             string             `bson:"password,omitempty" json:"-"`
	PasswordConfirm      string             `bson:"-" json:"-"`
	PasswordChangedAt    *time.Time         `bson:"passwordChangedAt,omitempty" json:"passwordChangedAt,omitempty"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time         `bson:"passwordResetExpires,omitempty" json:"-"`
	Active               bool               `bson:"active" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt,omitempty"`
	Version              int                `bson:"__v" json:"__v,omitempty"`
}

func NewUser() *User {
	return &User{Role: RoleUser, Photo: DefaultPhoto, Active: true}
}

// Public field set used when a user is embedded into another document.
var UserPublicFields = []string{"name", "email", "photo", "role"}
