package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"car-dashboard/utils"
)

// NewRouter wires the controller's routes on a gin engine that logs each
// request through logger.
func NewRouter(ctrl Controller, logger *utils.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/", ctrl.Index)
	r.GET("/healthz", ctrl.Health)

	api := r.Group("/api")
	api.GET("/summary", ctrl.Summary)
	api.GET("/listings", ctrl.Listings)
	api.GET("/listings.csv", ctrl.ListingsCSV)
	api.GET("/charts/:name", ctrl.Chart)
	api.POST("/reload", ctrl.Reload)
	return r
}

func requestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Request(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
