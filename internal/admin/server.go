// Package admin serves the relay's operator HTTP endpoints: health, metrics,
// link record lookup, and cache invalidation.
package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulandar/polyglot/internal/cache"
	"github.com/zulandar/polyglot/internal/store"
)

// StartOpts holds configuration for the admin server.
type StartOpts struct {
	Links  store.Links
	Config *cache.Config
	Port   int
	Out    io.Writer
}

// NewRouter builds the admin routes without starting a listener.
func NewRouter(links store.Links, config *cache.Config) (*gin.Engine, error) {
	if links == nil {
		return nil, fmt.Errorf("admin: link store is required")
	}
	if config == nil {
		return nil, fmt.Errorf("admin: config cache is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, links, config)
	return router, nil
}

// Start launches the admin HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts.Links, opts.Config)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		return fmt.Errorf("admin: port is required")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Admin server running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin: %w", err)
	}
	return nil
}

// registerRoutes sets up all admin routes on the Gin router.
func registerRoutes(router *gin.Engine, links store.Links, config *cache.Config) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/records/:messageID", handleRecord(links))
	api.POST("/cache/invalidate/:channelID", handleInvalidate(config))
	api.POST("/cache/flush", handleFlush(config))
}

// handleRecord looks a link record up by origin message ID, or by any copy
// when the channel query parameter is given.
func handleRecord(links store.Links) gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageID")
		channelID := c.Query("channel")

		var (
			rec *store.LinkRecord
			err error
		)
		if channelID != "" {
			rec, err = links.FindByCopyOrOrigin(c.Request.Context(), messageID, channelID)
		} else {
			rec, err = links.FindByOriginID(c.Request.Context(), messageID)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func handleInvalidate(config *cache.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		channelID := c.Param("channelID")
		config.Invalidate(channelID)
		c.JSON(http.StatusOK, gin.H{"invalidated": channelID})
	}
}

func handleFlush(config *cache.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		config.Flush()
		c.JSON(http.StatusOK, gin.H{"flushed": true})
	}
}
