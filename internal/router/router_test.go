package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-tour-booking/config"
	"github.com/oksasatya/go-tour-booking/internal/container"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/infrastructure/email"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Kind   string            `json:"kind"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	app    *App
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		PublicURL:         "http://localhost:8080",
		BCryptCost:        bcrypt.MinCost,
		PasswordMinLength: 8,
		ResetTokenTTL:     10 * time.Minute,
	}
	d := Deps{
		Config:   cfg,
		Logger:   log,
		Stores:   container.NewMemoryStores(),
		JWT:      helpers.NewJWTManager("test-secret", time.Hour),
		Notifier: email.Discard{},
	}
	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	reg := NewRegistry(engine)
	app := Build(d)
	Mount(reg, app, d)
	reg.RegisterAll()
	return &server{t: t, engine: engine, app: app}
}

func (s *server) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *server) signup(name, mail string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/users/signup", "", map[string]any{
		"name": name, "email": mail, "password": "pass1234", "passwordConfirm": "pass1234",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func (s *server) admin() string {
	s.t.Helper()
	u := entity.NewUser()
	u.Name, u.Email, u.Role = "Admin", "admin@example.com", entity.RoleAdmin
	u.Password, u.PasswordConfirm = "pass1234", "pass1234"
	_, err := s.app.Users.Create(context.Background(), u)
	require.NoError(s.t, err)

	w, env := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]any{"email": "admin@example.com", "password": "pass1234"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Token
}

var hiker = map[string]any{
	"name":         "The Forest Hiker",
	"duration":     5,
	"maxGroupSize": 25,
	"difficulty":   "easy",
	"price":        397,
	"summary":      "Breathtaking hike through the Canadian Banff National Park",
	"imageCover":   "tour-1-cover.jpg",
}

func TestUnknownRouteAnswersInErrorShape(t *testing.T) {
	s := newServer(t)
	w, env := s.do(http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "can't find /api/v1/nowhere on this server", env.Message)
	assert.Equal(t, "not_found", env.Error.Kind)
}

func TestSignupHidesCredentialFields(t *testing.T) {
	s := newServer(t)
	w, _ := s.do(http.MethodPost, "/api/v1/users/signup", "", map[string]any{
		"name": "Jonas", "email": "jonas@example.com", "password": "pass1234", "passwordConfirm": "pass1234",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "pass1234")
	assert.NotContains(t, w.Body.String(), `"password"`)
	assert.Contains(t, w.Header().Get("Set-Cookie"), helpers.TokenCookie+"=")
}

func TestSignupValidation(t *testing.T) {
	s := newServer(t)
	w, env := s.do(http.MethodPost, "/api/v1/users/signup", "", map[string]any{
		"name": "Jonas", "email": "jonas@example.com", "password": "pass1234", "passwordConfirm": "other123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", env.Error.Kind)
	assert.Contains(t, env.Error.Fields, "passwordConfirm")
}

func TestProtectedRoutes(t *testing.T) {
	s := newServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", env.Error.Kind)

	w, _ = s.do(http.MethodGet, "/api/v1/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.signup("Jonas", "jonas@example.com")
	w, env = s.do(http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "jonas@example.com", me.Email)
	assert.Equal(t, "user", me.Role)

	w, env = s.do(http.MethodGet, "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error.Kind)
}

func TestTourCRUDRequiresEditorRole(t *testing.T) {
	s := newServer(t)
	user := s.signup("Jonas", "jonas@example.com")
	admin := s.admin()

	w, _ := s.do(http.MethodPost, "/api/v1/tours", user, hiker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/tours", admin, hiker)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "the-forest-hiker", created.Slug)

	w, env = s.do(http.MethodGet, "/api/v1/tours?difficulty=easy", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, env.Meta["results"])

	w, _ = s.do(http.MethodGet, "/api/v1/tours/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/tours", admin, hiker)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "constraint_violation", env.Error.Kind)

	w, _ = s.do(http.MethodDelete, "/api/v1/tours/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/tours/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNestedReviewsUpdateTourRatings(t *testing.T) {
	s := newServer(t)
	admin := s.admin()
	_, env := s.do(http.MethodPost, "/api/v1/tours", admin, hiker)
	var tour struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tour))

	user := s.signup("Jonas", "jonas@example.com")
	path := "/api/v1/tours/" + tour.ID + "/reviews"

	w, _ := s.do(http.MethodPost, path, "", map[string]any{"review": "Great", "rating": 4})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = s.do(http.MethodPost, path, admin, map[string]any{"review": "Great", "rating": 4})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, path, user, map[string]any{"review": "Great", "rating": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.do(http.MethodPost, path, user, map[string]any{"review": "Again", "rating": 5})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(http.MethodGet, path, user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, env.Meta["results"])

	_, env = s.do(http.MethodGet, "/api/v1/tours/"+tour.ID, "", nil)
	var got struct {
		RatingsAverage  float64 `json:"ratingsAverage"`
		RatingsQuantity int     `json:"ratingsQuantity"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 1, got.RatingsQuantity)
	assert.Equal(t, 4.0, got.RatingsAverage)
}

func TestPasswordRoutesAreSeparate(t *testing.T) {
	s := newServer(t)
	token := s.signup("Jonas", "jonas@example.com")

	w, env := s.do(http.MethodPatch, "/api/v1/users/update-me", token, map[string]any{"password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "/update-password")

	w, _ = s.do(http.MethodPatch, "/api/v1/users/update-password", token, map[string]any{
		"passwordCurrent": "pass1234", "password": "newpass99", "passwordConfirm": "newpass99",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, "/api/v1/users/login", "", map[string]any{"email": "jonas@example.com", "password": "newpass99"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newServer(t)
	w, env := s.do(http.MethodGet, "/api/v1/users/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Contains(t, w.Header().Get("Set-Cookie"), helpers.TokenCookie+"=")
}

func TestCredentialAndSelfServiceRoutes(t *testing.T) {
	s := newServer(t)
	token := s.signup("Jonas", "jonas@example.com")

	w, _ := s.do(http.MethodPost, "/api/v1/users/forgot-password", "", map[string]any{"email": "jonas@example.com"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := s.do(http.MethodPatch, "/api/v1/users/reset-password/not-a-token", "", map[string]any{
		"password": "newpass99", "passwordConfirm": "newpass99",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "token_invalid_or_expired", env.Error.Kind)

	w, _ = s.do(http.MethodDelete, "/api/v1/users/delete-me", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
