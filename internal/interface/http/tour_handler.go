package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/pkg/response"
)

type TourHandler struct {
	Svc    *application.TourService
	Logger *logrus.Logger
}

func NewTourHandler(svc *application.TourService, logger *logrus.Logger) *TourHandler {
	return &TourHandler{Svc: svc, Logger: logger}
}

// AliasTopCheap rewrites the query string before the generic list handler runs.
func AliasTopCheap() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.URL.RawQuery = application.TopCheapParams(c.Request.URL.Query()).Encode()
		c.Next()
	}
}

func (h *TourHandler) Stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, stats, "", response.ListMeta{Results: len(stats)})
}

func (h *TourHandler) MonthlyPlan(c *gin.Context) {
	plan, err := h.Svc.MonthlyPlan(c.Request.Context(), c.Param("year"))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, plan, "", response.ListMeta{Results: len(plan)})
}

// Within serves /tours-within/:distance/center/:latlng/unit/:unit.
func (h *TourHandler) Within(c *gin.Context) {
	tours, err := h.Svc.Within(c.Request.Context(), c.Param("distance"), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, tours, "", response.ListMeta{Results: len(tours)})
}

// Distances serves /distances/:latlng/unit/:unit.
func (h *TourHandler) Distances(c *gin.Context) {
	out, err := h.Svc.Distances(c.Request.Context(), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, out, "", response.ListMeta{Results: len(out)})
}

func (h *TourHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	tours, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, tours, "", response.ListMeta{Results: len(tours)})
}
