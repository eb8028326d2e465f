package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-tour-booking/internal/domain/credential"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/memory"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
)

type fixture struct {
	userStore   *memory.Collection[entity.User]
	tourStore   *memory.Collection[entity.Tour]
	reviewStore *memory.Collection[entity.Review]

	creds    *credential.Lifecycle
	users    *Resource[entity.User]
	tours    *Resource[entity.Tour]
	reviews  *Resource[entity.Review]
	bookings *Resource[entity.Booking]
	ratings  *RatingsMaintainer
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := quietLogger()
	f := &fixture{
		userStore:   memory.NewCollection[entity.User](repository.Users, repository.UserIndexes...),
		tourStore:   memory.NewCollection[entity.Tour](repository.Tours, repository.TourIndexes...),
		reviewStore: memory.NewCollection[entity.Review](repository.Reviews, repository.ReviewIndexes...),
		creds:       credential.New(credential.Config{Cost: bcrypt.MinCost}),
	}
	bookingStore := memory.NewCollection[entity.Booking](repository.Bookings, repository.BookingIndexes...)

	f.users = NewUserResource(f.userStore, f.creds, log)
	f.ratings = NewRatingsMaintainer(memory.NewReviewStats(f.reviewStore), f.tourStore, log)
	f.reviews = NewReviewResource(f.reviewStore, f.users, f.ratings, log)
	f.tours = NewTourResource(f.tourStore, f.users, f.reviews, nil, log)
	f.bookings = NewBookingResource(bookingStore, f.users, f.tours, log)
	return f
}

func (f *fixture) user(t *testing.T, name, email string, role entity.Role) *entity.User {
	t.Helper()
	u := entity.NewUser()
	u.Name, u.Email, u.Role = name, email, role
	u.Password, u.PasswordConfirm = "pass1234", "pass1234"
	created, err := f.users.Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func (f *fixture) tour(t *testing.T, name string, price float64) *entity.Tour {
	t.Helper()
	tr := entity.NewTour()
	tr.Name = name
	tr.Duration = 10
	tr.MaxGroupSize = 12
	tr.Difficulty = entity.Medium
	tr.Price = price
	tr.Summary = "A long walk"
	tr.ImageCover = "cover.jpg"
	created, err := f.tours.Create(context.Background(), tr)
	require.NoError(t, err)
	return created
}

func (f *fixture) storedTour(t *testing.T, tour *entity.Tour) *entity.Tour {
	t.Helper()
	got, err := f.tourStore.FindOne(context.Background(), byID(tour.ID.Hex()))
	require.NoError(t, err)
	return got
}

func (f *fixture) jwt() *helpers.JWTManager {
	return helpers.NewJWTManager("test-secret", time.Hour)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Welcome(ctx context.Context, u *entity.User, url string) error {
	return m.Called(u.Email, url).Error(0)
}

func (m *mockNotifier) PasswordReset(ctx context.Context, u *entity.User, resetURL string) error {
	return m.Called(u.Email, resetURL).Error(0)
}

type mockAudit struct{ mock.Mock }

func (m *mockAudit) Record(ctx context.Context, ev AuditEvent) error {
	return m.Called(ev.Action).Error(0)
}
