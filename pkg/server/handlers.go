package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/internal/store"
	"github.com/dealio/dealio/pkg/listing"
)

type dealsQuery struct {
	Limit    int     `form:"limit,default=20" binding:"min=1,max=100"`
	MinScore float64 `form:"min_score,default=0" binding:"min=0,max=100"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Dealio API is live",
		"version": Version,
		"endpoints": gin.H{
			"/deals":            "Get filtered deals",
			"/deals/categories": "List deal categories",
			"/health":           "Health check",
			"/test-db":          "Test database connection",
			"/metrics":          "Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if !s.store.Ping(c.Request.Context()) {
		writeError(c, http.StatusServiceUnavailable, "Service unhealthy", "Database connection failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTestDB(c *gin.Context) {
	if s.store.Ping(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Database connection successful"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": false, "message": "Database connection failed"})
}

func (s *Server) handleDeals(c *gin.Context) {
	var q dealsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "Invalid query parameters", err.Error())
		return
	}

	deals, err := s.store.TopDeals(c.Request.Context(), q.Limit, q.MinScore)
	if errors.Is(err, store.ErrInvalidQuery) {
		writeError(c, http.StatusUnprocessableEntity, "Invalid query parameters", err.Error())
		return
	}
	if err != nil {
		s.logger.Error("fetch deals failed", logger.Error(err))
		writeError(c, http.StatusInternalServerError, "Failed to fetch deals", err.Error())
		return
	}
	if deals == nil {
		deals = []listing.Listing{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    deals,
		"count":   len(deals),
		"filters": gin.H{
			"limit":     q.Limit,
			"min_score": q.MinScore,
		},
	})
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": listing.Categories(),
	})
}

func writeError(c *gin.Context, status int, msg, detail string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"detail":  detail,
	})
}
