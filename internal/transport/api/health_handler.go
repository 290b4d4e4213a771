package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health GET RouteGroup + HealthRoute.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: healthStatusUp, Service: ServiceName})
}
