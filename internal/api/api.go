// Package api implements the read-only HTTP API over harvested posts.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	serverconfig "github.com/jonesrussell/cafecrawl/internal/config/server"
	"github.com/jonesrussell/cafecrawl/internal/crawler"
	"github.com/jonesrussell/cafecrawl/internal/database"
	"github.com/jonesrussell/cafecrawl/internal/logger"
)

const (
	// DefaultListLimit bounds /api/posts responses without an explicit limit.
	DefaultListLimit = 20
	// MaxListLimit is the hard cap on requested list sizes.
	MaxListLimit = 100
)

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(log logger.Interface, store database.PostStore, state *crawler.State) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/api/status", statusHandler(state))
	router.GET("/api/posts", listPostsHandler(log, store))

	return router
}

// NewServer wraps the router in an http.Server with the configured timeouts.
func NewServer(cfg *serverconfig.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// statusHandler reports run progress.
func statusHandler(state *crawler.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"running":   state.IsRunning(),
			"harvested": state.HarvestedCount(),
			"errors":    state.ErrorCount(),
		}
		if state.IsRunning() {
			resp["current_source"] = state.CurrentSource()
			resp["started_at"] = state.StartTime().UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// listPostsHandler returns the most recently harvested posts, newest first.
func listPostsHandler(log logger.Interface, store database.PostStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = min(parsed, MaxListLimit)
		}

		posts, err := store.ListRecent(c.Request.Context(), limit)
		if err != nil {
			log.WithError(err).Error("Failed to list posts")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"count": len(posts),
			"posts": posts,
		})
	}
}

// loggingMiddleware creates a middleware that logs HTTP requests.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
