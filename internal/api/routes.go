package api

import (
	"net/http"
	"time"

	"LuckyNumbers/internal/config"
	"LuckyNumbers/internal/interfaces"
	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReadyChecker reports whether the store can serve requests
type ReadyChecker interface {
	Ready() bool
}

// StateReporter reports the draw engine state
type StateReporter interface {
	State() service.State
}

// Deps what the routes need
type Deps struct {
	Service    *service.LotteryService
	Subscriber interfaces.Subscriber
	Store      ReadyChecker
	Engine     StateReporter // optional
	Topic      string
	Logger     *logrus.Logger
}

// NewRouter builds the gin engine with CORS, pprof and every route
func NewRouter(cfg *config.ServerConfig, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	pprof.Register(r)

	allowOrigin := func(origin string) bool {
		for _, o := range cfg.CORSOrigins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
	Register(r, deps, allowOrigin)
	return r
}

// Register adds the API routes to r
func Register(r gin.IRouter, deps Deps, allowOrigin func(string) bool) {
	numbers := NewNumbersHandler(deps.Service, deps.Logger)
	guesses := NewGuessHandler(deps.Service, deps.Logger)
	ws := NewWSHandler(deps.Subscriber, deps.Topic, allowOrigin, deps.Logger)

	r.GET("/health", healthHandler(deps.Store, deps.Engine))

	apiGroup := r.Group("/api", RequireReady(deps.Store))
	apiGroup.GET("/numbers", numbers.ListNumbers)
	apiGroup.GET("/numbers/stats", numbers.Stats)
	apiGroup.GET("/numbers/:timestamp", numbers.GetNumbers)

	apiGroup.POST("/guesses", guesses.CreateGuess)
	apiGroup.GET("/guesses", guesses.CurrentGuess)
	apiGroup.GET("/guesses/:id", guesses.GetGuess)
	apiGroup.PUT("/guesses/:id", guesses.UpdateGuess)
	apiGroup.DELETE("/guesses/:id", guesses.DeleteGuess)

	r.GET("/ws", ws.Subscribe)
}

// RequireReady answers 503 while the store is down
func RequireReady(store ReadyChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil && !store.Ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": model.ErrNotReady.Error()})
			return
		}
		c.Next()
	}
}

func healthHandler(store ReadyChecker, engine StateReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ready := store == nil || store.Ready()
		body := gin.H{"status": "ok", "store": ready}
		if engine != nil {
			body["engine"] = engine.State()
		}
		if !ready {
			body["status"] = "unavailable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}
