// Package app wires configuration, storage, modules and background jobs
// into a runnable HTTP application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hindsight-app/core/internal/config"
	"github.com/hindsight-app/core/internal/database"
	"github.com/hindsight-app/core/internal/middleware"
	"github.com/hindsight-app/core/internal/modules/entry"
	"github.com/hindsight-app/core/internal/modules/settings"
	"github.com/hindsight-app/core/internal/modules/tags"
	pkgcron "github.com/hindsight-app/core/internal/pkg/cron"
	"github.com/hindsight-app/core/internal/pkg/push"
	pkgredis "github.com/hindsight-app/core/internal/pkg/redis"
	"github.com/hindsight-app/core/internal/storage"
	"github.com/hindsight-app/core/internal/storage/kvstore"
	"github.com/hindsight-app/core/internal/storage/sqlstore"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	store  storage.Store
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

var processStart = time.Now()

// New initializes the application: config → storage backend → routes →
// background jobs. The backend is chosen once here and never switched at
// runtime.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage (%s): %w", cfg.Storage.Driver, err)
	}
	logger.Info("storage backend ready", zap.String("driver", store.Name()))

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())

	tagIndex := tags.NewIndex(store)
	if err := tagIndex.Reload(ctx); err != nil {
		// Not fatal: the index refills on the next write or reload.
		logger.Warn("initial tag index load failed", zap.Error(err))
	}

	settingsSvc := settings.NewService(store)
	entrySvc := entry.NewService(store, tagIndex)

	sched := pkgcron.New()
	registerCronJobs(sched, cfg, entrySvc, settingsSvc, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:    cfg,
		router: router,
		store:  store,
		logger: logger,
		cancel: cancel,
		sched:  sched,
	}
	app.registerRoutes(entrySvc, tagIndex, settingsSvc)

	return app, nil
}

func openStore(cfg *config.AppConfig) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		rc, err := pkgredis.Connect(cfg.RedisURL())
		if err != nil {
			return nil, err
		}
		return kvstore.New(rc), nil
	case config.DriverSQLite:
		db, err := database.Connect(cfg, true)
		if err != nil {
			return nil, err
		}
		return sqlstore.New(db), nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Storage.Driver)
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		c.AllowOriginFunc = func(origin string) bool {
			host := originHost(origin)
			for _, pattern := range patterns {
				if matchOrigin(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		c.AllowOriginFunc = func(origin string) bool { return true }
	}
	return c
}

// originHost returns the "host[:port]" portion of an origin URL.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOrigin reports whether host matches an allowed-origin pattern.
// "*.example.com" matches any subdomain, "localhost:*" matches any port.
func matchOrigin(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	if strings.HasSuffix(pattern, ":*") {
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}

// registerCronJobs sets up the recurring review reminder. The push relay
// settings come from the preference store, so they can be changed through
// the API without restarting.
func registerCronJobs(sched *pkgcron.Scheduler, cfg *config.AppConfig, entrySvc *entry.Service, settingsSvc *settings.Service, logger *zap.Logger) {
	if !cfg.Reminder.Enable {
		return
	}

	pushSvc := push.New(func() (deviceKey, serverURL string) {
		ctx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelFn()
		return settingsSvc.GetOr(ctx, settings.OptionPushDeviceKey, ""),
			settingsSvc.GetOr(ctx, settings.OptionPushServerURL, "")
	})
	reminderLogger := logger.Named("reminder")

	sched.Register(pkgcron.Job{
		Name:        "review_reminder",
		Description: "daily push when reviews are waiting",
		Schedule:    pkgcron.DailyAt{Hour: cfg.Reminder.Hour, Minute: cfg.Reminder.Minute},
		Fn: func(ctx context.Context) error {
			n, err := entrySvc.PendingCount(ctx, time.Now())
			if err != nil {
				reminderLogger.Warn("pending count failed", zap.Error(err))
				return err
			}
			if n == 0 {
				return nil
			}
			body := fmt.Sprintf("%d entries are ready for reflection", n)
			if err := pushSvc.Push("Time to look back", body); err != nil {
				reminderLogger.Warn("push failed", zap.Error(err))
				return err
			}
			reminderLogger.Info("reminder sent", zap.Int64("pending", n))
			return nil
		},
	})
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines.
func (a *App) Shutdown() { a.cancel() }
