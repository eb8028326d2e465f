package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/config"
	"github.com/oksasatya/go-tour-booking/internal/container"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/email"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/mongodb"
	"github.com/oksasatya/go-tour-booking/internal/router"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
	"github.com/oksasatya/go-tour-booking/pkg/validation"
)

// seed creates an admin, a lead guide and one demo tour through the regular
// resources, so hooks (hashing, slugs, ratings defaults) apply. Existing
// documents are left alone.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	validation.Init()

	ctx := context.Background()
	client, err := mongodb.NewClient(ctx, cfg.MongoURI, cfg.MongoTimeout)
	if err != nil {
		logger.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer func() { _ = mongodb.Disconnect(client) }()

	stores := container.NewMongoStores(client.Database(cfg.MongoDatabase))
	if err := stores.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("failed to create indexes: %v", err)
	}

	app := router.Build(router.Deps{
		Config:   cfg,
		Logger:   logger,
		Stores:   stores,
		JWT:      helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		Notifier: email.Discard{},
	})

	admin := seedUser(ctx, app, logger, "admin", "admin@natours.io", entity.RoleAdmin)
	guide := seedUser(ctx, app, logger, "Lead Guide", "guide@natours.io", entity.RoleLeadGuide)

	tour := entity.NewTour()
	tour.Name = "The Forest Hiker"
	tour.Duration = 5
	tour.MaxGroupSize = 25
	tour.Difficulty = entity.Easy
	tour.Price = 397
	tour.Summary = "Breathtaking hike through the Canadian Banff National Park"
	tour.ImageCover = "tour-1-cover.jpg"
	tour.StartDates = []time.Time{time.Date(2027, 4, 25, 9, 0, 0, 0, time.UTC)}
	tour.StartLocation = &entity.GeoPoint{Type: "Point", Coordinates: []float64{-115.570154, 51.178456}, Address: "224 Banff Ave, Banff, AB, Canada"}
	for _, u := range []*entity.User{admin, guide} {
		if u != nil {
			tour.GuideIDs = append(tour.GuideIDs, u.ID)
		}
	}
	if t, err := app.Tours.Create(ctx, tour); err != nil {
		report(logger, "tour", tour.Name, err)
	} else {
		logger.WithFields(logrus.Fields{"id": t.ID.Hex(), "slug": t.Slug}).Info("seeded tour")
	}
}

const seedPassword = "test1234"

func seedUser(ctx context.Context, app *router.App, logger *logrus.Logger, name, addr string, role entity.Role) *entity.User {
	u := entity.NewUser()
	u.Name, u.Email, u.Role = name, addr, role
	u.Password, u.PasswordConfirm = seedPassword, seedPassword
	created, err := app.Users.Create(ctx, u)
	if err != nil {
		report(logger, "user", addr, err)
		// fall back to the stored document so the tour can reference it
		existing, ferr := app.Users.FindOne(ctx, byEmail(addr))
		if ferr != nil {
			return nil
		}
		return existing
	}
	logger.WithFields(logrus.Fields{"id": created.ID.Hex(), "email": addr, "role": role}).Info("seeded user")
	return created
}

func report(logger *logrus.Logger, kind, key string, err error) {
	if apperror.IsKind(err, apperror.ConstraintViolation) {
		logger.WithField(kind, key).Info("already present, skipped")
		return
	}
	logger.WithError(err).WithField(kind, key).Error("seed failed")
}

func byEmail(addr string) *query.Query {
	return query.New().Where("email", query.Eq, addr)
}
