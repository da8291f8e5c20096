package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hindsight-app/core/internal/modules/crontask"
	"github.com/hindsight-app/core/internal/modules/dailylog"
	"github.com/hindsight-app/core/internal/modules/entry"
	"github.com/hindsight-app/core/internal/modules/feedback"
	"github.com/hindsight-app/core/internal/modules/settings"
	"github.com/hindsight-app/core/internal/modules/tags"
	"github.com/hindsight-app/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(entrySvc *entry.Service, tagIndex *tags.Index, settingsSvc *settings.Service) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "hindsight-core",
		"version": "1.0.0",
		"storage": a.store.Name(),
	}

	api := r.Group(apiPrefix)
	api.Use(a.requireStore())

	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptime := time.Since(processStart)
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptime.Milliseconds(),
			"humanize":  humanizeDuration(uptime),
		})
	})

	entry.NewHandler(entrySvc).RegisterRoutes(api)
	tags.NewHandler(tagIndex).RegisterRoutes(api)
	dailylog.NewHandler(dailylog.NewService(a.store)).RegisterRoutes(api)
	settings.NewHandler(settingsSvc).RegisterRoutes(api)
	feedback.NewHandler(feedback.NewService(a.cfg.Feedback.Endpoint)).RegisterRoutes(api)
	crontask.NewHandler(a.sched).RegisterRoutes(api)
}

// requireStore guards against requests racing a failed initialization.
func (a *App) requireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.store == nil {
			response.ServiceUnavailable(c, "storage not ready")
			return
		}
		c.Next()
	}
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	if d < 24*time.Hour {
		return d.Truncate(time.Hour).String()
	}
	return d.Truncate(24 * time.Hour).String()
}
