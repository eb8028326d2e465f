package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
	"github.com/oksasatya/go-tour-booking/pkg/response"
	"github.com/oksasatya/go-tour-booking/pkg/validation"
)

// ScopeFunc returns extra conditions for a list route, e.g. the parent id of a
// nested route.
type ScopeFunc func(c *gin.Context) ([]query.Condition, error)

// Factory builds the five generic handlers for one resource.
type Factory[T any] struct {
	Resource *application.Resource[T]
	Logger   *logrus.Logger
	// Populate names the reference sets resolved by ReadOne.
	Populate []string
	Scope    ScopeFunc
}

func NewFactory[T any](r *application.Resource[T], logger *logrus.Logger) *Factory[T] {
	return &Factory[T]{Resource: r, Logger: logger}
}

// WithScope returns a copy of f whose list handler is limited by scope.
func (f *Factory[T]) WithScope(scope ScopeFunc) *Factory[T] {
	cp := *f
	cp.Scope = scope
	return &cp
}

func (f *Factory[T]) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := f.body(c)
		if !ok {
			return
		}
		doc, err := f.Resource.Decode(body)
		if err != nil {
			WriteError(c, f.Logger, err)
			return
		}
		created, err := f.Resource.Create(c.Request.Context(), doc)
		if err != nil {
			WriteError(c, f.Logger, err)
			return
		}
		response.Success(c, http.StatusCreated, created, f.Resource.Name()+" created", nil)
	}
}

func (f *Factory[T]) ReadOne() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := f.Resource.ReadOne(c.Request.Context(), c.Param("id"), f.Populate...)
		if err != nil {
			WriteError(c, f.Logger, err)
			return
		}
		response.Success(c, http.StatusOK, doc, "", nil)
	}
}

func (f *Factory[T]) ReadMany() gin.HandlerFunc {
	return func(c *gin.Context) {
		var base []query.Condition
		if f.Scope != nil {
			var err error
			if base, err = f.Scope(c); err != nil {
				WriteError(c, f.Logger, err)
				return
			}
		}
		items, n, err := f.Resource.ReadMany(c.Request.Context(), c.Request.URL.Query(), base...)
		if err != nil {
			WriteError(c, f.Logger, err)
			return
		}
		response.Success(c, http.StatusOK, items, "", response.ListMeta{Results: n})
	}
}

func (f *Factory[T]) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := f.body(c)
		if !ok {
			return
		}
		updated, err := f.Resource.Update(c.Request.Context(), c.Param("id"), body)
		if err != nil {
			WriteError(c, f.Logger, err)
			return
		}
		response.Success(c, http.StatusOK, updated, f.Resource.Name()+" updated", nil)
	}
}

func (f *Factory[T]) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := f.Resource.Delete(c.Request.Context(), c.Param("id")); err != nil {
			WriteError(c, f.Logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (f *Factory[T]) body(c *gin.Context) (map[string]any, bool) {
	body, err := bindBody(c)
	if err != nil {
		WriteError(c, f.Logger, err)
		return nil, false
	}
	return body, true
}

// bindBody decodes a JSON object body. An empty body is an empty object.
func bindBody(c *gin.Context) (map[string]any, error) {
	body := map[string]any{}
	if c.Request.ContentLength == 0 {
		return body, nil
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, apperror.Validation(validation.ToDetails(err))
	}
	return body, nil
}

// WriteError maps err onto the uniform error response.
func WriteError(c *gin.Context, logger *logrus.Logger, err error) {
	response.Fail(c, logger, err)
}
