package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/config"
	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/container"
	"github.com/oksasatya/go-tour-booking/internal/domain/credential"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/email"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/media"
	pginfra "github.com/oksasatya/go-tour-booking/internal/infrastructure/postgres"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-tour-booking/internal/interface/http"
	"github.com/oksasatya/go-tour-booking/internal/router/modules"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
	mailtpl "github.com/oksasatya/go-tour-booking/pkg/mailer/templates"
)

// Deps are the collaborators the application graph is built from. Optional
// adapters are left nil when not configured.
type Deps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Stores   *container.Stores
	JWT      *helpers.JWTManager
	Redis    *redis.Client
	Notifier application.Notifier
	Audit    application.AuditLog
	Media    application.MediaStore
	Index    application.SearchIndex
	Checkout application.CheckoutProvider
}

// App holds the constructed resources and services.
type App struct {
	Users    *application.Resource[entity.User]
	Tours    *application.Resource[entity.Tour]
	Reviews  *application.Resource[entity.Review]
	Bookings *application.Resource[entity.Booking]
	Ratings  *application.RatingsMaintainer

	Auth        *application.AuthService
	UserSvc     *application.UserService
	TourSvc     *application.TourService
	ReviewSvc   *application.ReviewService
	BookingSvc  *application.BookingService
	Credentials *credential.Lifecycle
}

// Build wires resources in dependency order: reviews need users and the
// ratings maintainer, tours need reviews for population.
func Build(d Deps) *App {
	cfg, log := d.Config, d.Logger
	creds := credential.New(credential.Config{
		Cost:       cfg.BCryptCost,
		ResetTTL:   cfg.ResetTokenTTL,
		ChangeSkew: cfg.PasswordChangeSkew,
		MinLength:  cfg.PasswordMinLength,
	})

	a := &App{Credentials: creds}
	a.Users = application.NewUserResource(d.Stores.Users, creds, log)
	a.Ratings = application.NewRatingsMaintainer(d.Stores.ReviewStats, d.Stores.Tours, log)
	a.Reviews = application.NewReviewResource(d.Stores.Reviews, a.Users, a.Ratings, log)
	a.Tours = application.NewTourResource(d.Stores.Tours, a.Users, a.Reviews, d.Index, log)
	a.Bookings = application.NewBookingResource(d.Stores.Bookings, a.Users, a.Tours, log)

	a.Auth = application.NewAuthService(a.Users, creds, d.JWT, d.Notifier, d.Audit, log)
	a.UserSvc = application.NewUserService(a.Users, d.Media, log)
	a.TourSvc = application.NewTourService(a.Tours, d.Index)
	a.ReviewSvc = application.NewReviewService(a.Reviews, a.Tours)
	a.BookingSvc = application.NewBookingService(a.Bookings, a.Tours, d.Checkout)
	return a
}

// Mount adds every feature module of app to the registry.
func Mount(r *Registry, app *App, d Deps) {
	cfg, log := d.Config, d.Logger

	tourFactory := handlers.NewFactory(app.Tours, log)
	tourFactory.Populate = []string{application.PopulateReviews}
	reviewFactory := handlers.NewFactory(app.Reviews, log)
	reviewHandler := handlers.NewReviewHandler(app.ReviewSvc, log)

	r.Add(modules.NewAuthModule(
		handlers.NewAuthHandler(app.Auth, log, helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure), cfg.PublicURL),
		app.Auth,
	))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(app.UserSvc, log), handlers.NewFactory(app.Users, log), app.Auth))
	r.Add(modules.NewTourModule(handlers.NewTourHandler(app.TourSvc, log), tourFactory, reviewHandler, reviewFactory, app.Auth))
	r.Add(modules.NewReviewModule(reviewHandler, reviewFactory, app.Auth))
	r.Add(modules.NewBookingModule(handlers.NewBookingHandler(app.BookingSvc, log, cfg.PublicURL), handlers.NewFactory(app.Bookings, log), app.Auth))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(d.Redis))
	}
}

// InitModules builds the application from the container singletons and
// registers its modules. Call once during startup.
func InitModules(r *Registry) *App {
	d := depsFromContainer()
	app := Build(d)
	Mount(r, app, d)
	return app
}

func depsFromContainer() Deps {
	cfg := container.GetConfig()
	log := container.GetLogger()
	d := Deps{
		Config:   cfg,
		Logger:   log,
		Stores:   container.GetStores(),
		JWT:      container.GetJWT(),
		Redis:    container.GetRedis(),
		Notifier: email.Discard{},
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		brand := mailtpl.Brand{CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL}
		d.Notifier = email.NewQueueNotifier(pub, brand, cfg.ResetTokenTTL)
	} else {
		log.Warn("email queue unavailable, notifications are discarded")
	}
	if pool := container.GetAuditPool(); pool != nil {
		d.Audit = pginfra.NewAuditLog(pool)
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		d.Media = media.NewGCSStore(gcs, cfg.GCSBucket)
	}
	if es := container.GetES(); es != nil {
		d.Index = search.NewTourIndex(es, cfg.ESToursIndex, log)
	}
	return d
}
