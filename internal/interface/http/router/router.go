package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/response"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Users        *handler.UserHandler
	Books        *handler.BookHandler
	Reservations *handler.ReservationHandler
	Auth         *middleware.AuthMiddleware
}

// New builds the gin engine with the middleware chain and every route.
func New(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.Tracing(),
	)
	if cfg.Metrics.Enabled {
		metrics.InitMetrics()
		r.Use(middleware.Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	if cfg.Server.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := h.Auth.RequireAuth()
	admin := h.Auth.RequireAdmin()

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users")
		users.POST("/register", h.Users.Register)
		users.POST("/login", h.Users.Login)
		users.POST("/refresh", h.Users.Refresh)
		users.POST("/logout", auth, h.Users.Logout)
		users.GET("/me", auth, h.Users.Me)

		books := v1.Group("/books")
		books.GET("", h.Books.ListBooks)
		books.GET("/:id", h.Books.GetBook)

		reservations := v1.Group("/reservations", auth)
		reservations.POST("", h.Reservations.Reserve)
		reservations.GET("/mine", h.Reservations.Mine)
		reservations.POST("/:id/cancel", h.Reservations.Cancel)

		librarian := v1.Group("/admin", auth, admin)
		librarian.POST("/books", h.Books.AddBook)
		librarian.POST("/books/:id/assign-next", h.Reservations.AssignNext)
		librarian.GET("/reservations", h.Reservations.List)
		librarian.POST("/reservations/:id/approve", h.Reservations.ApprovePickup)
		librarian.POST("/reservations/:id/return", h.Reservations.Return)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID, middleware.HeaderTraceID},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
